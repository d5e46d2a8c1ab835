package agentbridge

import (
	"context"
	"sync"
)

// MemoryStepStore keeps step results in memory. It provides replay within a
// single process only; use FileStepStore or the postgres package when results
// must survive a process restart.
type MemoryStepStore struct {
	mutex sync.RWMutex
	runs  map[string]map[string][]byte
}

// NewMemoryStepStore creates an empty in-memory step store.
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{runs: map[string]map[string][]byte{}}
}

// SaveStepResult records a step result. The first write for a step wins.
func (s *MemoryStepStore) SaveStepResult(ctx context.Context, runID, stepName string, result []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	steps, ok := s.runs[runID]
	if !ok {
		steps = map[string][]byte{}
		s.runs[runID] = steps
	}
	if _, exists := steps[stepName]; exists {
		return nil
	}
	stored := make([]byte, len(result))
	copy(stored, result)
	steps[stepName] = stored
	return nil
}

// LoadStepResult returns the recorded result for a step, if any.
func (s *MemoryStepStore) LoadStepResult(ctx context.Context, runID, stepName string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	steps, ok := s.runs[runID]
	if !ok {
		return nil, false, nil
	}
	result, ok := steps[stepName]
	if !ok {
		return nil, false, nil
	}
	returned := make([]byte, len(result))
	copy(returned, result)
	return returned, true, nil
}

// DeleteRun removes all step results for a run.
func (s *MemoryStepStore) DeleteRun(ctx context.Context, runID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.runs, runID)
	return nil
}
