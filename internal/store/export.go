package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

const exportSchema = `
CREATE TABLE classes (
	name         TEXT PRIMARY KEY,
	parent       TEXT,
	source_file  TEXT,
	added_at     TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	content_hash TEXT NOT NULL
);

CREATE TABLE properties (
	class    TEXT NOT NULL REFERENCES classes(name),
	key      TEXT NOT NULL,
	value    TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (class, position)
);

CREATE TABLE files (
	path  TEXT NOT NULL,
	class TEXT NOT NULL,
	PRIMARY KEY (path, class)
);

CREATE INDEX idx_classes_parent ON classes(parent);
CREATE INDEX idx_properties_key ON properties(key);
`

// ExportSQLite writes ix to a new SQLite database at path, replacing any
// existing file.
func ExportSQLite(ctx context.Context, ix *ClassIndex, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exportError("failed to create export directory", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return exportError("failed to replace existing export", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return exportError("failed to open database", path, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = exportError("failed to close database", path, cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, exportSchema); err != nil {
		return exportError("failed to create schema", path, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return exportError("failed to begin transaction", path, err)
	}
	if err := writeRows(ctx, tx, ix); err != nil {
		_ = tx.Rollback()
		return exportError("failed to write rows", path, err)
	}
	if err := tx.Commit(); err != nil {
		return exportError("failed to commit export", path, err)
	}

	slog.Info("export_complete",
		slog.String("path", path),
		slog.Int("classes", len(ix.Entries)),
		slog.Int("files", len(ix.FileClasses)))
	return nil
}

func writeRows(ctx context.Context, tx *sql.Tx, ix *ClassIndex) error {
	classStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO classes (name, parent, source_file, added_at, updated_at, content_hash) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = classStmt.Close() }()

	propStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO properties (class, key, value, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = propStmt.Close() }()

	fileStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO files (path, class) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = fileStmt.Close() }()

	for _, name := range ix.Names() {
		e := ix.Entries[name]
		if _, err := classStmt.ExecContext(ctx,
			name,
			nullable(e.Class.Parent),
			nullable(e.Class.SourceFile),
			e.AddedAt.Format(time.RFC3339Nano),
			e.UpdatedAt.Format(time.RFC3339Nano),
			e.FileHash,
		); err != nil {
			return fmt.Errorf("class %s: %w", name, err)
		}
		for i, p := range e.Class.Properties {
			if _, err := propStmt.ExecContext(ctx, name, p.Key, p.Value, i); err != nil {
				return fmt.Errorf("property %s.%s: %w", name, p.Key, err)
			}
		}
	}

	for _, path := range ix.Files() {
		for _, name := range ix.FileClasses[path] {
			if _, err := fileStmt.ExecContext(ctx, path, name); err != nil {
				return fmt.Errorf("file %s: %w", path, err)
			}
		}
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func exportError(msg, path string, err error) error {
	return cerrors.New(cerrors.ErrCodeExportFailed, msg, err).WithDetail("path", path)
}
