package snapshot

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the snapshot as a single-row blob in a SQLite
// database. WAL mode keeps the periodic writes from blocking readers.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path,
// ensuring the parent directory exists, and prepares the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open snapshot db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot db at %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Read returns the stored snapshot, or ok=false when none was written yet.
func (s *SQLiteStore) Read() ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot row: %w", err)
	}
	return data, true, nil
}

// Write upserts the snapshot row.
func (s *SQLiteStore) Write(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (id, data, updated_at) VALUES (1, ?, unixepoch())
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = unixepoch()
	`, data)
	if err != nil {
		return fmt.Errorf("write snapshot row: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
