package agentbridge

import (
	"context"
	"encoding/json"
	"time"
)

// StepRunner is the durable execution primitive the bridge runs on. The
// contract is at-least-once execution with memoized results: a step body may
// be re-entered after a crash, but once it has returned successfully, replay
// yields the stored result instead of re-running the body. Side-effecting
// bridge operations are always wrapped as steps, never executed bare.
type StepRunner interface {

	// RunID returns the instance identifier of this workflow run.
	RunID() string

	// Do executes the named step at most once per run. On replay of a
	// completed step the memoized result is returned without invoking fn.
	Do(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error)

	// WaitForEvent suspends the run until an event of the configured type
	// arrives or the timeout elapses. A nil event with a nil error means the
	// wait timed out. On replay the recorded outcome is returned without
	// re-waiting.
	WaitForEvent(ctx context.Context, name string, opts WaitOptions) (*Event, error)
}

// WaitOptions configures a WaitForEvent suspension.
type WaitOptions struct {
	// Type is the event type tag the wait matches on.
	Type string

	// Timeout bounds the wait. Zero waits indefinitely.
	Timeout time.Duration
}

// Event is a typed payload delivered to a suspended workflow run.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent creates an event with a JSON-encoded payload. It panics if the
// payload cannot be marshaled; callers control the payload type.
func NewEvent(eventType string, payload any) *Event {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &Event{Type: eventType, Payload: data}
}

// StepStore persists memoized step results for workflow runs.
type StepStore interface {

	// SaveStepResult records the result of a completed step. The first write
	// for a (run, step) pair wins; later writes are ignored.
	SaveStepResult(ctx context.Context, runID, stepName string, result []byte) error

	// LoadStepResult returns the recorded result for a step, with a boolean
	// indicating whether one exists.
	LoadStepResult(ctx context.Context, runID, stepName string) ([]byte, bool, error)

	// DeleteRun removes all step results recorded for a run.
	DeleteRun(ctx context.Context, runID string) error
}
