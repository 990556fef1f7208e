// Package history keeps a log of resolved addresses in a SQLite database
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS ip_addresses (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	hostname    TEXT    NOT NULL,
	ip_address  TEXT    NOT NULL,
	resolved_at INTEGER NOT NULL
)`

// ErrNotFound is returned when deleting an entry that does not exist
var ErrNotFound = errors.New("no such record")

// Entry is one resolved address
type Entry struct {
	ID         int64  `db:"id"`
	Hostname   string `db:"hostname"`
	Address    string `db:"ip_address"`
	ResolvedAt int64  `db:"resolved_at"`
}

// Time returns the moment the address was resolved
func (e Entry) Time() time.Time {
	return time.Unix(e.ResolvedAt, 0).UTC()
}

// Store is a history database
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening history database %v: %w", path, err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating history table in %v: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds one entry per address, all with the same timestamp
func (s *Store) Record(ctx context.Context, hostname string, addresses []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	resolvedAt := s.now().Unix()
	for _, addr := range addresses {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ip_addresses (hostname, ip_address, resolved_at) VALUES (?, ?, ?)`,
			hostname, addr, resolvedAt)
		if err != nil {
			return fmt.Errorf("error recording %v for %v: %w", addr, hostname, err)
		}
	}
	return tx.Commit()
}

// List returns every entry, oldest first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT id, hostname, ip_address, resolved_at FROM ip_addresses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing history: %w", err)
	}
	return entries, nil
}

// Delete removes the entry with the given id
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ip_addresses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// Clear removes all entries and returns how many there were
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ip_addresses`)
	if err != nil {
		return 0, fmt.Errorf("error clearing history: %w", err)
	}
	return res.RowsAffected()
}
