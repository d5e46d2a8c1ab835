package agentbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.jetify.com/typeid"
)

// NewRunID returns a new typed ID for run identification.
func NewRunID() string {
	id, err := typeid.WithPrefix("run")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// LocalStepRunner is an in-process StepRunner for tests, examples, and
// single-process deployments. Step results are JSON-memoized in a StepStore,
// so a runner reconstructed over the same store replays completed steps
// without re-running their bodies. Events are delivered through an in-process
// mailbox via Deliver.
//
// Memoized results round-trip through JSON, so replayed values come back as
// the generic JSON shapes (map[string]any, []any, float64, string, bool).
type LocalStepRunner struct {
	runID   string
	store   StepStore
	logger  *slog.Logger
	mailbox chan *Event
}

// LocalStepRunnerOptions configures a LocalStepRunner.
type LocalStepRunnerOptions struct {
	RunID       string
	Store       StepStore
	Logger      *slog.Logger
	MailboxSize int
}

// NewLocalStepRunner creates a LocalStepRunner. A zero options value yields a
// fresh run ID, an in-memory store, and a discard logger.
func NewLocalStepRunner(opts LocalStepRunnerOptions) *LocalStepRunner {
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStepStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 16
	}
	return &LocalStepRunner{
		runID:   opts.RunID,
		store:   opts.Store,
		logger:  opts.Logger.With("run_id", opts.RunID),
		mailbox: make(chan *Event, opts.MailboxSize),
	}
}

// RunID returns the run's instance identifier.
func (r *LocalStepRunner) RunID() string {
	return r.runID
}

// Deliver places an event into the run's mailbox, unblocking a matching
// WaitForEvent. It blocks if the mailbox is full.
func (r *LocalStepRunner) Deliver(event *Event) {
	r.mailbox <- event
}

// Do executes the named step at most once for this run. A previously
// recorded result is returned without invoking fn.
func (r *LocalStepRunner) Do(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	stored, ok, err := r.store.LoadStepResult(ctx, r.runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load step result %q: %w", name, err)
	}
	if ok {
		r.logger.Debug("replaying memoized step", "step", name)
		var result any
		if len(stored) > 0 {
			if err := json.Unmarshal(stored, &result); err != nil {
				return nil, fmt.Errorf("failed to decode step result %q: %w", name, err)
			}
		}
		return result, nil
	}

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step result %q: %w", name, err)
	}
	if err := r.store.SaveStepResult(ctx, r.runID, name, data); err != nil {
		return nil, fmt.Errorf("failed to save step result %q: %w", name, err)
	}
	r.logger.Debug("step completed", "step", name)
	return result, nil
}

// WaitForEvent suspends until an event of the configured type arrives or the
// timeout elapses. The outcome is recorded, so replay returns the same event
// (or the same timeout) without waiting again. An empty recorded result
// marks a timeout.
func (r *LocalStepRunner) WaitForEvent(ctx context.Context, name string, opts WaitOptions) (*Event, error) {
	stepName := "wait:" + name

	stored, ok, err := r.store.LoadStepResult(ctx, r.runID, stepName)
	if err != nil {
		return nil, fmt.Errorf("failed to load wait result %q: %w", name, err)
	}
	if ok {
		if len(stored) == 0 {
			return nil, nil
		}
		var event Event
		if err := json.Unmarshal(stored, &event); err != nil {
			return nil, fmt.Errorf("failed to decode wait result %q: %w", name, err)
		}
		r.logger.Debug("replaying recorded event", "step", stepName, "event_type", event.Type)
		return &event, nil
	}

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			if err := r.store.SaveStepResult(ctx, r.runID, stepName, []byte{}); err != nil {
				return nil, fmt.Errorf("failed to save wait result %q: %w", name, err)
			}
			r.logger.Debug("event wait timed out", "step", stepName, "event_type", opts.Type)
			return nil, nil
		case event := <-r.mailbox:
			if opts.Type != "" && event.Type != opts.Type {
				r.logger.Warn("discarding event with unexpected type",
					"step", stepName, "want", opts.Type, "got", event.Type)
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				return nil, fmt.Errorf("failed to encode wait result %q: %w", name, err)
			}
			if err := r.store.SaveStepResult(ctx, r.runID, stepName, data); err != nil {
				return nil, fmt.Errorf("failed to save wait result %q: %w", name, err)
			}
			return event, nil
		}
	}
}
