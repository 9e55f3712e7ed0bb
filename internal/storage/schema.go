package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

var schemaTables = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		imported_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (document, id)
	)`,
	`CREATE TABLE IF NOT EXISTS points (
		document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		point_key TEXT NOT NULL,
		location INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (document, id)
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		start_location INTEGER NOT NULL,
		end_location INTEGER NOT NULL,
		center_location INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		PRIMARY KEY (document, id)
	)`,
	`CREATE TABLE IF NOT EXISTS texts (
		document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		text TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		rotation REAL NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (document, id)
	)`,
	`CREATE TABLE IF NOT EXISTS operations (
		document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		performed_at TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (document, id)
	)`,
	`CREATE TABLE IF NOT EXISTS operation_entities (
		document TEXT NOT NULL,
		op INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('created', 'changed', 'inputs', 'supersedes')),
		ordinal INTEGER NOT NULL,
		kind TEXT NOT NULL,
		entity INTEGER NOT NULL,
		PRIMARY KEY (document, op, role, ordinal),
		FOREIGN KEY (document, op) REFERENCES operations(document, id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS exports (
		session_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		machine TEXT NOT NULL,
		created_at TEXT NOT NULL,
		tolerance REAL NOT NULL,
		item_count INTEGER NOT NULL,
		extra_count INTEGER NOT NULL,
		first_id INTEGER NOT NULL,
		last_id INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exports_document ON exports(document, created_at)`,
}

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		for _, stmt := range schemaTables {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	switch {
	case version == currentSchemaVersion:
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	case version == 0:
		// An empty file left behind by an interrupted first open.
		return db.initializeSchema()
	case version > currentSchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)
	return nil
}

// getSchemaVersion returns the stored schema version, or 0 for a new database.
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}
