package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cedx/internal/export"
)

// ExportRecord is one entry in a document's export history.
type ExportRecord struct {
	SessionID  string    `json:"sessionId"`
	Document   string    `json:"document"`
	Machine    string    `json:"machine"`
	CreatedAt  time.Time `json:"createdAt"`
	Tolerance  float64   `json:"tolerance"`
	ItemCount  int       `json:"itemCount"`
	ExtraCount int       `json:"extraCount"`
	FirstID    uint32    `json:"firstId"`
	LastID     uint32    `json:"lastId"`
}

// ExportRepository records finished exports.
type ExportRepository struct {
	db *DB
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Record adds pkg to its document's export history.
func (r *ExportRepository) Record(ctx context.Context, pkg *export.Package) error {
	first, last := pkg.IDRange()
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO exports (
			session_id, document, machine, created_at, tolerance,
			item_count, extra_count, first_id, last_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pkg.SessionID,
		pkg.Document,
		pkg.Machine,
		formatTime(pkg.CreatedAt),
		pkg.Tolerance,
		len(pkg.Items),
		pkg.ExtraCount(),
		int64(first),
		int64(last),
	)
	if err != nil {
		return fmt.Errorf("failed to record export %s: %w", pkg.SessionID, err)
	}
	return nil
}

// ListByDocument returns the exports of a document, oldest first.
func (r *ExportRepository) ListByDocument(ctx context.Context, name string) ([]ExportRecord, error) {
	var records []ExportRecord
	err := queryEach(ctx, r.db, `
		SELECT session_id, document, machine, created_at, tolerance,
		       item_count, extra_count, first_id, last_id
		FROM exports
		WHERE document = ?
		ORDER BY created_at, rowid
	`, []any{name}, func(rows *sql.Rows) error {
		var (
			rec         ExportRecord
			createdAt   string
			first, last int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Document, &rec.Machine, &createdAt, &rec.Tolerance,
			&rec.ItemCount, &rec.ExtraCount, &first, &last); err != nil {
			return err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return err
		}
		rec.CreatedAt = t
		rec.FirstID, rec.LastID = uint32(first), uint32(last)
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exports for %q: %w", name, err)
	}
	return records, nil
}

// HighestID returns the highest id any recorded export of the document used,
// or 0 when it has never been exported.
func (r *ExportRepository) HighestID(ctx context.Context, name string) (uint32, error) {
	var highest sql.NullInt64
	err := r.db.conn.QueryRowContext(ctx, `SELECT MAX(last_id) FROM exports WHERE document = ?`, name).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("failed to read highest id for %q: %w", name, err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return uint32(highest.Int64), nil
}
