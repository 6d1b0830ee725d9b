package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// MigrationError is returned by Open when a database's user_version is
// newer than anything this binary knows how to read.
type MigrationError struct {
	Path    string
	Version int
	Max     int
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("database %s has user_version %d, newer than the %d this binary understands", e.Path, e.Version, e.Max)
}

// observeQuery times an operation and records it under the store's Kind label.
func observeQuery(kind Kind, operation string) func(error) {
	start := time.Now()
	return func(err error) {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(string(kind), operation, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(string(kind), operation).Observe(duration)
	}
}

// Store wraps one SQLite database — either a per-folder database or the
// single global database — with the connection pool, schema, and
// transaction helpers shared by both.
type Store struct {
	db   *sql.DB
	path string
	kind Kind

	mu      sync.RWMutex
	txStart time.Time
}

// Open opens (creating if necessary) a SQLite database at path, applies
// pragmas, and runs the schema/migrations appropriate for kind.
func Open(ctx context.Context, path string, kind Kind) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", kind, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", kind, err)
	}

	// One writer, N readers: SQLite serializes writers internally, so
	// limiting MaxOpenConns just bounds how many readers pile up waiting
	// behind the WAL.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path, kind: kind}

	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize %s schema: %w", kind, err)
	}

	metrics.DBConnectionsOpen.WithLabelValues(string(kind)).Set(0)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	done := observeQuery(s.kind, "initialize_schema")
	_, err := s.db.ExecContext(ctx, schemaFor(s.kind))
	done(err)
	if err != nil {
		return err
	}

	return s.runMigrations(ctx)
}

func (s *Store) runMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return &MigrationError{Path: s.path, Version: version, Max: currentSchemaVersion}
	}

	pending := migrations
	if version < len(migrations) {
		pending = migrations[version:]
	} else {
		pending = nil
	}

	for _, step := range pending {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}

		if err := step.up(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", step.version, err)
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump user_version to %d: %w", step.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", step.version, err)
		}

		logging.Info("applied %s database migration %d", s.kind, step.version)
	}

	metrics.DBMigrationVersion.WithLabelValues(string(s.kind)).Set(float64(currentSchemaVersion))
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path this store was opened against.
func (s *Store) Path() string { return s.path }

// Kind returns whether this is the folder or global store.
func (s *Store) Kind() Kind { return s.kind }

// DB exposes the raw *sql.DB for packages (sync, pipeline, query) that need
// to run ad hoc statements this package doesn't wrap directly.
func (s *Store) DB() *sql.DB { return s.db }

// BeginBatch starts a transaction for batch operations, serialized against
// any other batch on this store.
func (s *Store) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	s.mu.Lock()

	done := observeQuery(s.kind, "begin_transaction")
	tx, err := s.db.BeginTx(ctx, nil)
	done(err)

	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.txStart = time.Now()
	return tx, nil
}

// EndBatch commits tx if err is nil, otherwise rolls it back and returns err
// (joined with any rollback failure).
func (s *Store) EndBatch(tx *sql.Tx, err error) error {
	defer s.mu.Unlock()

	if err != nil {
		done := observeQuery(s.kind, "rollback")
		rbErr := tx.Rollback()
		done(rbErr)
		if rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	done := observeQuery(s.kind, "commit")
	commitErr := tx.Commit()
	done(commitErr)
	return commitErr
}

// UpdateConnectionMetrics refreshes the open-connections gauge from the
// connection pool's current statistics.
func (s *Store) UpdateConnectionMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.WithLabelValues(string(s.kind)).Set(float64(stats.OpenConnections))
}
