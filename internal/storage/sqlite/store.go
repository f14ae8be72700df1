package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = "data/polymarket_arbitrage.db"

	// Fixed width so text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the persistence upsert relies on it.
	db.SetMaxOpenConns(1)
	if err := ensureWAL(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the opportunity tables and indexes exist.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes both opportunity tables.
func (s *Store) DropTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
DROP TABLE IF EXISTS opportunities;
DROP TABLE IF EXISTS opportunity_persistence;
PRAGMA user_version = 0;`)
	return err
}

// ClearTables deletes every row while keeping the schema.
func (s *Store) ClearTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM opportunities; DELETE FROM opportunity_persistence;`)
	return err
}

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	schemaSQL,
	`CREATE INDEX IF NOT EXISTS idx_persistence_market ON opportunity_persistence(market_id);
CREATE INDEX IF NOT EXISTS idx_persistence_duration ON opportunity_persistence(duration_seconds);`,
}

// MigrateSchema applies pending migrations and returns the resulting version.
func (s *Store) MigrateSchema(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return version, err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, i+1)); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return version, err
		}
		version = i + 1
	}
	return version, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_hash TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	market_id TEXT NOT NULL,
	market_title TEXT,
	target_size REAL NOT NULL,
	vwap_yes REAL NOT NULL,
	vwap_no REAL NOT NULL,
	raw_sum REAL NOT NULL,
	fee_rate_yes REAL NOT NULL,
	fee_rate_no REAL NOT NULL,
	effective_cost REAL NOT NULL,
	edge_decimal REAL NOT NULL,
	yes_book_depth INTEGER,
	no_book_depth INTEGER,
	UNIQUE(opportunity_hash, timestamp)
);
CREATE TABLE IF NOT EXISTS opportunity_persistence (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_hash TEXT UNIQUE NOT NULL,
	market_id TEXT NOT NULL,
	target_size REAL NOT NULL,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL,
	duration_seconds REAL,
	max_edge REAL,
	min_edge REAL,
	avg_edge REAL,
	observation_count INTEGER DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_timestamp ON opportunities(timestamp);
CREATE INDEX IF NOT EXISTS idx_market_id ON opportunities(market_id);
CREATE INDEX IF NOT EXISTS idx_edge ON opportunities(edge_decimal);
CREATE INDEX IF NOT EXISTS idx_hash ON opportunities(opportunity_hash);
`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		// Rows written by other tools may use plain RFC3339.
		return time.Parse(time.RFC3339Nano, raw)
	}
	return t, nil
}
