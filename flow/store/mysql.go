package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// It persists one checkpoint row per thread in a relational database.
// Designed for:
//   - Production deployments requiring durability
//   - Multiple worker processes sharing one checkpoint store
//   - Long-running threads that survive process restarts
//
// The version compare-and-swap is a conditional UPDATE, which is what
// makes concurrent resumes of the same thread across workers safe:
// exactly one writer wins, the others get ErrConflict.
//
// Type parameter S is the state type to persist (must be
// JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed checkpoint store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param=value&...]
//
// Example:
//
//	user:password@tcp(localhost:3306)/workflows?parseTime=true
//
// parseTime=true is required so updated_at scans into time.Time.
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	st, err := store.NewMySQLStore[onboard.State](dsn)
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the checkpoint schema if it doesn't exist.
func (s *MySQLStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			thread_id VARCHAR(255) PRIMARY KEY,
			state JSON NOT NULL,
			next_step VARCHAR(255) NOT NULL,
			version INT NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL
		)
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load retrieves the checkpoint for a thread.
func (s *MySQLStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
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
		stateJSON []byte
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

	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}

	return cp, nil
}

// Save persists a checkpoint with compare-and-swap on the version.
func (s *MySQLStore[S]) Save(ctx context.Context, cp Checkpoint[S], expectedVersion int) error {
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
			INSERT IGNORE INTO workflow_checkpoints (thread_id, state, next_step, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
		`
		result, err := s.db.ExecContext(ctx, insert, cp.ThreadID, stateJSON, cp.NextStep, now)
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
	result, err := s.db.ExecContext(ctx, update, stateJSON, cp.NextStep, now, cp.ThreadID, expectedVersion)
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
func (s *MySQLStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
