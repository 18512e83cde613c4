package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists one checkpoint row per thread in a single-file database.
// Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments that must survive restarts
//   - Prototyping before migrating to a shared store
//
// SQLiteStore uses WAL mode for concurrent reads and enforces the
// version compare-and-swap with a conditional UPDATE, so concurrent
// resumes of the same thread are rejected with ErrConflict rather than
// silently overwritten.
//
// Type parameter S is the state type to persist (must be
// JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed checkpoint store.
//
// The path parameter specifies the database file location:
//   - "./dev.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically creates the database file and schema, enables
// WAL mode for concurrent reads, and sets a busy timeout.
//
// Example:
//
//	st, err := store.NewSQLiteStore[onboard.State]("./checkpoints.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the checkpoint schema if it doesn't exist.
func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			thread_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			next_step TEXT NOT NULL,
			version INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load retrieves the checkpoint for a thread.
func (s *SQLiteStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return zero, errors.New("store is closed")
	}

	query := `
		SELECT state, next_step, version, updated_at
		FROM workflow_checkpoints
		WHERE thread_id = ?
	`
	var (
		stateJSON string
		cp        Checkpoint[S]
	)
	cp.ThreadID = threadID

	row := s.db.QueryRowContext(ctx, query, threadID)
	if err := row.Scan(&stateJSON, &cp.NextStep, &cp.Version, &cp.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}

	return cp, nil
}

// Save persists a checkpoint with compare-and-swap on the version.
//
// A fresh thread (expectedVersion 0) is inserted; an existing thread is
// updated with `WHERE version = ?`. Zero rows affected in either case
// means a concurrent writer committed first and ErrConflict is
// returned.
func (s *SQLiteStore[S]) Save(ctx context.Context, cp Checkpoint[S], expectedVersion int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("store is closed")
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}

	now := time.Now().UTC()

	if expectedVersion == 0 {
		insert := `
			INSERT INTO workflow_checkpoints (thread_id, state, next_step, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(thread_id) DO NOTHING
		`
		result, err := s.db.ExecContext(ctx, insert, cp.ThreadID, string(stateJSON), cp.NextStep, now)
		if err != nil {
			return fmt.Errorf("failed to insert checkpoint: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check insert result: %w", err)
		}
		if affected == 0 {
			return ErrConflict
		}
		return nil
	}

	update := `
		UPDATE workflow_checkpoints
		SET state = ?, next_step = ?, version = version + 1, updated_at = ?
		WHERE thread_id = ? AND version = ?
	`
	result, err := s.db.ExecContext(ctx, update, string(stateJSON), cp.NextStep, now, cp.ThreadID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// Close closes the database connection. Subsequent operations return an
// error.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
