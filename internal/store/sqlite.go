package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

// pragmas run on every new database handle. WAL is skipped for memoryDSN,
// where SQLite ignores it.
var pragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA journal_mode=WAL",
}

// SQLiteStore keeps engine snapshots in a SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the database at path, creating it if needed, and
// brings its schema up to date. Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if path == memoryDSN && p == "PRAGMA journal_mode=WAL" {
			continue
		}
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating snapshot schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the newest applied migration, or 0 on a fresh
// database.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var exists bool
	if err := s.db.Get(&exists,
		`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	); err != nil {
		return 0, fmt.Errorf("looking up schema_version: %w", err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	if err := s.db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate applies every migration newer than the stored version, each in
// its own transaction.
func (s *SQLiteStore) migrate() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("starting migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// boolToInt maps b onto the 0/1 columns guarded by CHECK constraints.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
