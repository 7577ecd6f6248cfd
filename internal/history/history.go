// Package history keeps a local record of already-synced messages so reruns
// skip work even before the destination database is consulted.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS synced_messages (
	fingerprint TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	sender      TEXT NOT NULL,
	synced_at   TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open creates or opens the state database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Has reports whether a message fingerprint was synced before.
func (s *Store) Has(fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM synced_messages WHERE fingerprint = ?", fingerprint,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query state database: %w", err)
	}
	return true, nil
}

// Add records a synced message. Re-adding the same fingerprint is a no-op.
func (s *Store) Add(fingerprint, subject, sender string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO synced_messages (fingerprint, subject, sender, synced_at) VALUES (?, ?, ?, ?)",
		fingerprint, subject, sender, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record synced message: %w", err)
	}
	return nil
}

// Count returns how many messages the store remembers.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM synced_messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count state database: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
