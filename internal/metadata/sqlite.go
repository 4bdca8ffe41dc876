package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attributes (
	path  TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (path, key)
);
`

// SQLiteStore persists attributes in a single SQLite database, keyed by
// absolute file path.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns $XDG_DATA_HOME/deskgrid/metadata.db.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "deskgrid", "metadata.db"), nil
}

// OpenSQLite opens (creating if needed) the database at path. An empty path
// uses DefaultDBPath.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		var err error
		path, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}
	// Writers are serialized by SQLite anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, path, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM attributes WHERE path = ? AND key = ?", path, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s of %s: %w", key, path, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, path, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attributes (path, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(path, key) DO UPDATE SET value = excluded.value`,
		path, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s of %s: %w", key, path, err)
	}
	return nil
}

// Rename moves every attribute recorded for oldPath onto newPath.
func (s *SQLiteStore) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE OR REPLACE attributes SET path = ? WHERE path = ?", newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to rename metadata %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
