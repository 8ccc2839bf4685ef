// Package store persists geocoding results in a local SQLite database so
// repeated runs over the same addresses skip the network.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// CachedResult is one stored geocode outcome. Negative outcomes
// (Matched=false) are stored too so unmatchable addresses are not retried
// every run.
type CachedResult struct {
	Latitude  float64
	Longitude float64
	Display   string // formatted address, set by reverse geocoding
	Source    string
	Matched   bool
}

// SQLiteStore implements the geocode cache using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite database at path and
// configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create cache dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	id           TEXT PRIMARY KEY,
	address_hash TEXT NOT NULL UNIQUE,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	display      TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL DEFAULT 0,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// Migrate creates the cache schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the cached result for an address hash, or (nil, nil) when
// absent or expired. ttlDays <= 0 disables expiry.
func (s *SQLiteStore) Get(ctx context.Context, hash string, ttlDays int) (*CachedResult, error) {
	query := `SELECT latitude, longitude, display, source, matched FROM geocode_cache WHERE address_hash = ?`
	if ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > datetime('now', '-%d days')", ttlDays)
	}

	var r CachedResult
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&r.Latitude, &r.Longitude, &r.Display, &r.Source, &r.Matched,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get geocode")
	}
	return &r, nil
}

// Put inserts or refreshes a cached result for an address hash.
func (s *SQLiteStore) Put(ctx context.Context, hash string, r CachedResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (id, address_hash, latitude, longitude, display, source, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display = excluded.display,
			source = excluded.source,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		uuid.NewString(), hash, r.Latitude, r.Longitude, r.Display, r.Source, r.Matched,
	)
	return eris.Wrap(err, "sqlite: put geocode")
}
