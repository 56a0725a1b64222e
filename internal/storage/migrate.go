package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// Migrations ship embedded in the binary, ordered by filename. The up
// scripts build the tracking schema; the down scripts drop it.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp applies every up migration in filename order. Already-
// applied statements use IF NOT EXISTS guards, so re-running is safe.
func MigrateUp(db *sql.DB) error {
	return applyMigrations(db, ".up.sql")
}

// MigrateDown rolls the schema back.
func MigrateDown(db *sql.DB) error {
	return applyMigrations(db, ".down.sql")
}

func applyMigrations(db *sql.DB, suffix string) error {
	names, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return fmt.Errorf("storage: glob migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("storage: read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("storage: apply migration %s: %w", name, err)
		}
	}
	return nil
}
