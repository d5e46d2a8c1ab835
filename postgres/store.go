// Package postgres provides a StepStore backed by PostgreSQL, for deployments
// where memoized step results must survive process restarts and be shared
// across hosts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/deepnoodle-ai/agentbridge"
)

const schema = `
CREATE TABLE IF NOT EXISTS agentbridge_steps (
	run_id     TEXT NOT NULL,
	step_name  TEXT NOT NULL,
	result     BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, step_name)
)`

// StepStore persists memoized step results in PostgreSQL.
type StepStore struct {
	db *sql.DB
}

var _ agentbridge.StepStore = (*StepStore)(nil)

// NewStepStore creates a StepStore over an existing database handle and
// ensures the schema exists.
func NewStepStore(ctx context.Context, db *sql.DB) (*StepStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create agentbridge_steps table: %w", err)
	}
	return &StepStore{db: db}, nil
}

// Open connects to PostgreSQL with the given DSN and returns a StepStore.
// The caller owns the store and should Close it when done.
func Open(ctx context.Context, dsn string) (*StepStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	store, err := NewStepStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database handle.
func (s *StepStore) Close() error {
	return s.db.Close()
}

// SaveStepResult records a step result. The first write for a (run, step)
// pair wins; conflicting writes are ignored, which is what makes replayed
// steps idempotent.
func (s *StepStore) SaveStepResult(ctx context.Context, runID, stepName string, result []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agentbridge_steps (run_id, step_name, result)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, step_name) DO NOTHING`,
		runID, stepName, result)
	if err != nil {
		return fmt.Errorf("failed to save step result: %w", err)
	}
	return nil
}

// LoadStepResult returns the recorded result for a step, if any.
func (s *StepStore) LoadStepResult(ctx context.Context, runID, stepName string) ([]byte, bool, error) {
	var result []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM agentbridge_steps WHERE run_id = $1 AND step_name = $2`,
		runID, stepName).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load step result: %w", err)
	}
	return result, true, nil
}

// DeleteRun removes all step results recorded for a run.
func (s *StepStore) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agentbridge_steps WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
