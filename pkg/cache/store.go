// Package cache memoizes parsed transcript files keyed by source file
// fingerprint, so unchanged inputs are never reparsed across runs.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store persists CacheRecords in a SQLite database. WAL mode allows a watch
// process and a one-shot conversion to share the same cache file safely.
type Store struct {
	db *sql.DB
}

// ErrNotFound is returned by Get when no record exists for a path.
var ErrNotFound = errors.New("no cache record for path")

// Record is one persisted parse result: the full outcome of parsing a
// single source file. Records are written whole in one transaction — the
// unit of caching is one file's parse result, never a partial update.
type Record struct {
	Path          string
	Fingerprint   string
	FormatVersion int
	Payload       []byte // JSON-encoded transcript.ParseResult
	UpdatedAt     time.Time
}

// OpenStore opens (or creates) the cache database at the given path.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout=15000&_pragma=journal_mode(WAL)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Serialize writes to avoid SQLITE_BUSY under concurrent conversions
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parses (
		path TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		format_version INTEGER NOT NULL,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the record for a source file path, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, format_version, payload, updated_at FROM parses WHERE path = ?`, path)

	rec := Record{Path: path}
	var updatedAt int64
	if err := row.Scan(&rec.Fingerprint, &rec.FormatVersion, &rec.Payload, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cache record: %w", err)
	}
	rec.UpdatedAt = time.Unix(0, updatedAt)
	return &rec, nil
}

// Put stores a record, replacing any previous one for the same path. The
// single-statement upsert keeps writes all-or-nothing per file: a cancelled
// run can never leave a record reflecting a partially written parse.
func (s *Store) Put(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO parses (path, fingerprint, format_version, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Path, rec.Fingerprint, rec.FormatVersion, rec.Payload, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache record: %w", err)
	}
	return nil
}

// Delete removes the record for a path. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parses WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting cache record: %w", err)
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parses`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Count returns the number of cached files.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache records: %w", err)
	}
	return n, nil
}
