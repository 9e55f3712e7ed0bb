package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cedx/internal/document"
	"cedx/internal/errors"
)

// Entity roles within an operation, as stored in operation_entities.
const (
	roleCreated    = "created"
	roleChanged    = "changed"
	roleInputs     = "inputs"
	roleSupersedes = "supersedes"
)

// DocumentInfo summarises a stored document.
type DocumentInfo struct {
	Name       string          `json:"name"`
	ImportedAt time.Time       `json:"importedAt"`
	Counts     document.Counts `json:"counts"`
}

// DocumentRepository stores document snapshots.
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Save stores snap, replacing any document with the same name.
func (r *DocumentRepository) Save(ctx context.Context, snap *document.Snapshot, importedAt time.Time) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		name := snap.Name()
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents (name, imported_at) VALUES (?, ?)`,
			name, formatTime(importedAt)); err != nil {
			return err
		}

		for _, l := range snap.Locations() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO locations (document, id, x, y, status) VALUES (?, ?, ?, ?, ?)`,
				name, int64(l.ID), l.X, l.Y, string(l.Status)); err != nil {
				return err
			}
		}
		for _, p := range snap.Points() {
			if _, err := tx.ExecContext(ctx, `INSERT INTO points (document, id, point_key, location, status) VALUES (?, ?, ?, ?, ?)`,
				name, int64(p.ID), p.Key, int64(p.Location), string(p.Status)); err != nil {
				return err
			}
		}
		for _, l := range snap.Lines() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO lines (document, id, start_location, end_location, center_location, status)
				VALUES (?, ?, ?, ?, ?, ?)
			`, name, int64(l.ID), int64(l.Start), int64(l.End), int64(l.Center), string(l.Status)); err != nil {
				return err
			}
		}
		for _, t := range snap.Texts() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO texts (document, id, text, x, y, rotation, status)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, name, int64(t.ID), t.Text, t.X, t.Y, t.Rotation, string(t.Status)); err != nil {
				return err
			}
		}

		for seq, op := range snap.Operations() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO operations (document, id, seq, kind, performed_at, status)
				VALUES (?, ?, ?, ?, ?, ?)
			`, name, int64(op.ID), seq, string(op.Kind), formatTime(op.When), string(op.Status)); err != nil {
				return err
			}
			roles := []struct {
				role string
				refs []document.EntityRef
			}{
				{roleCreated, op.Created},
				{roleChanged, op.Changed},
				{roleInputs, op.Inputs},
				{roleSupersedes, op.Supersedes},
			}
			for _, rr := range roles {
				for i, ref := range rr.refs {
					if _, err := tx.ExecContext(ctx, `
						INSERT INTO operation_entities (document, op, role, ordinal, kind, entity)
						VALUES (?, ?, ?, ?, ?, ?)
					`, name, int64(op.ID), rr.role, i, string(ref.Kind), int64(ref.ID)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", snap.Name(), err)
	}

	r.db.logger.Debug("Document saved",
		"document", snap.Name(),
		"operations", len(snap.Operations()),
	)
	return nil
}

// Load reads the named document back into a validated snapshot.
// A missing document yields DOCUMENT_NOT_FOUND.
func (r *DocumentRepository) Load(ctx context.Context, name string) (*document.Snapshot, error) {
	exists, err := r.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewCedxError(errors.DocumentNotFound,
			fmt.Sprintf("document %q not found", name), nil, errors.GetSuggestedFixes(errors.DocumentNotFound))
	}

	b := document.NewBuilder(name)
	if err := r.loadEntities(ctx, name, b); err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", name, err)
	}
	if err := r.loadOperations(ctx, name, b); err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", name, err)
	}

	snap, err := b.Build()
	if err != nil {
		return nil, errors.New(errors.DataIntegrity, fmt.Sprintf("stored document %q is inconsistent", name), err)
	}
	return snap, nil
}

func (r *DocumentRepository) exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up document %q: %w", name, err)
	}
	return n > 0, nil
}

func (r *DocumentRepository) loadEntities(ctx context.Context, name string, b *document.Builder) error {
	err := queryEach(ctx, r.db, `SELECT id, x, y, status FROM locations WHERE document = ? ORDER BY rowid`,
		[]any{name}, func(rows *sql.Rows) error {
			var (
				l      document.Location
				id     int64
				status string
			)
			if err := rows.Scan(&id, &l.X, &l.Y, &status); err != nil {
				return err
			}
			l.ID, l.Status = document.EntityID(id), document.Status(status)
			b.PutLocation(l)
			return nil
		})
	if err != nil {
		return err
	}

	err = queryEach(ctx, r.db, `SELECT id, point_key, location, status FROM points WHERE document = ? ORDER BY rowid`,
		[]any{name}, func(rows *sql.Rows) error {
			var (
				p         document.Point
				id, locID int64
				status    string
			)
			if err := rows.Scan(&id, &p.Key, &locID, &status); err != nil {
				return err
			}
			p.ID, p.Location, p.Status = document.EntityID(id), document.EntityID(locID), document.Status(status)
			b.PutPoint(p)
			return nil
		})
	if err != nil {
		return err
	}

	err = queryEach(ctx, r.db, `
		SELECT id, start_location, end_location, center_location, status
		FROM lines WHERE document = ? ORDER BY rowid
	`, []any{name}, func(rows *sql.Rows) error {
		var (
			id, start, end, center int64
			status                 string
		)
		if err := rows.Scan(&id, &start, &end, &center, &status); err != nil {
			return err
		}
		b.PutLine(document.Line{
			ID:     document.EntityID(id),
			Start:  document.EntityID(start),
			End:    document.EntityID(end),
			Center: document.EntityID(center),
			Status: document.Status(status),
		})
		return nil
	})
	if err != nil {
		return err
	}

	return queryEach(ctx, r.db, `SELECT id, text, x, y, rotation, status FROM texts WHERE document = ? ORDER BY rowid`,
		[]any{name}, func(rows *sql.Rows) error {
			var (
				t      document.Text
				id     int64
				status string
			)
			if err := rows.Scan(&id, &t.Text, &t.X, &t.Y, &t.Rotation, &status); err != nil {
				return err
			}
			t.ID, t.Status = document.EntityID(id), document.Status(status)
			b.PutText(t)
			return nil
		})
}

func (r *DocumentRepository) loadOperations(ctx context.Context, name string, b *document.Builder) error {
	var ops []document.Operation
	index := make(map[document.OpID]int)

	err := queryEach(ctx, r.db, `SELECT id, kind, performed_at, status FROM operations WHERE document = ? ORDER BY seq`,
		[]any{name}, func(rows *sql.Rows) error {
			var (
				id                 int64
				kind, when, status string
			)
			if err := rows.Scan(&id, &kind, &when, &status); err != nil {
				return err
			}
			t, err := parseTime(when)
			if err != nil {
				return fmt.Errorf("operation %d: %w", id, err)
			}
			index[document.OpID(id)] = len(ops)
			ops = append(ops, document.Operation{
				ID:     document.OpID(id),
				Kind:   document.OpKind(kind),
				When:   t,
				Status: document.Status(status),
			})
			return nil
		})
	if err != nil {
		return err
	}

	err = queryEach(ctx, r.db, `
		SELECT op, role, kind, entity FROM operation_entities
		WHERE document = ? ORDER BY op, role, ordinal
	`, []any{name}, func(rows *sql.Rows) error {
		var (
			opID, entity int64
			role, kind   string
		)
		if err := rows.Scan(&opID, &role, &kind, &entity); err != nil {
			return err
		}
		i, ok := index[document.OpID(opID)]
		if !ok {
			return fmt.Errorf("entity row for unknown operation %d", opID)
		}
		ref := document.Ref(document.EntityKind(kind), document.EntityID(entity))
		op := &ops[i]
		switch role {
		case roleCreated:
			op.Created = append(op.Created, ref)
		case roleChanged:
			op.Changed = append(op.Changed, ref)
		case roleInputs:
			op.Inputs = append(op.Inputs, ref)
		case roleSupersedes:
			op.Supersedes = append(op.Supersedes, ref)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, op := range ops {
		b.AddOperation(op)
	}
	return nil
}

// List returns every stored document ordered by name.
func (r *DocumentRepository) List(ctx context.Context) ([]DocumentInfo, error) {
	var docs []DocumentInfo
	err := queryEach(ctx, r.db, `
		SELECT d.name, d.imported_at,
		       (SELECT COUNT(*) FROM operations o WHERE o.document = d.name),
		       (SELECT COUNT(*) FROM locations l WHERE l.document = d.name),
		       (SELECT COUNT(*) FROM points p WHERE p.document = d.name),
		       (SELECT COUNT(*) FROM lines n WHERE n.document = d.name),
		       (SELECT COUNT(*) FROM texts t WHERE t.document = d.name)
		FROM documents d
		ORDER BY d.name
	`, nil, func(rows *sql.Rows) error {
		var (
			info     DocumentInfo
			imported string
			c        = &info.Counts
		)
		if err := rows.Scan(&info.Name, &imported, &c.Operations, &c.Locations, &c.Points, &c.Lines, &c.Texts); err != nil {
			return err
		}
		t, err := parseTime(imported)
		if err != nil {
			return err
		}
		info.ImportedAt = t
		docs = append(docs, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Delete removes the named document. It reports whether anything was deleted.
func (r *DocumentRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// queryEach runs query and calls fn for every row.
func queryEach(ctx context.Context, db *DB, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
