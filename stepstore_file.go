package agentbridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStepStore persists step results to disk, one JSON file per step under a
// per-run directory. It gives LocalStepRunner crash-resilient replay without
// a database.
type FileStepStore struct {
	dataDir string
}

// NewFileStepStore creates a file-based step store rooted at dataDir. An
// empty dataDir defaults to ~/.deepnoodle/agentbridge/runs.
func NewFileStepStore(dataDir string) (*FileStepStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".deepnoodle", "agentbridge", "runs")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileStepStore{dataDir: dataDir}, nil
}

// sanitizeStepName maps a step name to a safe file name. Step names may
// contain characters like ':' from event waits.
func sanitizeStepName(stepName string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, stepName)
}

func (s *FileStepStore) stepPath(runID, stepName string) string {
	return filepath.Join(s.dataDir, runID, sanitizeStepName(stepName)+".json")
}

// SaveStepResult writes the step result to disk. The first write for a step
// wins; a step file that already exists is left untouched.
func (s *FileStepStore) SaveStepResult(ctx context.Context, runID, stepName string, result []byte) error {
	runDir := filepath.Join(s.dataDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	file, err := os.OpenFile(s.stepPath(runID, stepName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create step result file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(result); err != nil {
		return fmt.Errorf("failed to write step result file: %w", err)
	}
	return nil
}

// LoadStepResult reads a recorded step result from disk, if one exists.
func (s *FileStepStore) LoadStepResult(ctx context.Context, runID, stepName string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.stepPath(runID, stepName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read step result file: %w", err)
	}
	return data, true, nil
}

// ListRuns returns the IDs of every run with recorded steps.
func (s *FileStepStore) ListRuns(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	var runIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runIDs = append(runIDs, entry.Name())
		}
	}
	return runIDs, nil
}

// ListSteps returns the recorded step file names for a run. The names are the
// sanitized on-disk forms, not the original step names.
func (s *FileStepStore) ListSteps(ctx context.Context, runID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}
	var steps []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			steps = append(steps, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return steps, nil
}

// DeleteRun removes the run's directory and every step result in it.
func (s *FileStepStore) DeleteRun(ctx context.Context, runID string) error {
	if err := os.RemoveAll(filepath.Join(s.dataDir, runID)); err != nil {
		return fmt.Errorf("failed to delete run directory: %w", err)
	}
	return nil
}
