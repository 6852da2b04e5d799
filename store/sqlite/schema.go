package sqlite

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the version of the tables created by initSchema.
const SchemaVersion = 1

// initSchema creates the tables if they don't exist.
func initSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS global_marks (
			key TEXT PRIMARY KEY,
			line INTEGER,
			col INTEGER,
			filename TEXT NOT NULL,
			protocol TEXT NOT NULL DEFAULT 'file'
		);`,
		`CREATE TABLE IF NOT EXISTS mark_files (
			name TEXT PRIMARY KEY,
			timestamp INTEGER,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS file_marks (
			file TEXT NOT NULL REFERENCES mark_files(name) ON DELETE CASCADE,
			key TEXT NOT NULL,
			line INTEGER,
			col INTEGER,
			PRIMARY KEY (file, key)
		);`,
		`CREATE TABLE IF NOT EXISTS jumps (
			seq INTEGER PRIMARY KEY,
			line INTEGER,
			col INTEGER,
			filename TEXT NOT NULL
		);`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?);`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
