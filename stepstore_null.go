package agentbridge

import (
	"context"
)

// NullStepStore records nothing. With this store every step re-executes on
// replay, so it is only appropriate when durability is deliberately disabled,
// e.g. throwaway development runs.
type NullStepStore struct{}

// NewNullStepStore creates a step store that discards all writes.
func NewNullStepStore() *NullStepStore {
	return &NullStepStore{}
}

// SaveStepResult discards the result.
func (s *NullStepStore) SaveStepResult(ctx context.Context, runID, stepName string, result []byte) error {
	return nil
}

// LoadStepResult always reports a miss.
func (s *NullStepStore) LoadStepResult(ctx context.Context, runID, stepName string) ([]byte, bool, error) {
	return nil, false, nil
}

// DeleteRun is a no-op.
func (s *NullStepStore) DeleteRun(ctx context.Context, runID string) error {
	return nil
}
