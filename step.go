package agentbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/deepnoodle-ai/agentbridge/retry"
)

// AgentStep augments a StepRunner handle with durable helpers for talking
// back to the originating agent. Every helper runs inside a uniquely named
// step, so replay after a crash returns the memoized outcome instead of
// repeating the side effect. The agent RPC inside each step is hardened with
// bounded full-jitter retries.
//
// Helper failures propagate to the caller. Only the coordinator's automatic
// error boundary swallows notification failures.
type AgentStep struct {
	runner        StepRunner
	agent         AgentHandle
	workflowName  string
	logger        *slog.Logger
	callbackRetry retry.Options
	counter       atomic.Int64
	errorReported atomic.Bool
}

// AgentStepOptions configures an AgentStep.
type AgentStepOptions struct {
	Runner       StepRunner
	Agent        AgentHandle
	WorkflowName string
	Logger       *slog.Logger

	// CallbackRetry configures the retry policy applied to agent RPC inside
	// each durable step. Zero fields take the retry package defaults.
	CallbackRetry retry.Options
}

// NewAgentStep creates an AgentStep. The retry options are validated
// eagerly, before any operation executes.
func NewAgentStep(opts AgentStepOptions) (*AgentStep, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("step runner is required")
	}
	if opts.Agent == nil {
		return nil, fmt.Errorf("agent handle is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	callbackRetry, err := retry.Resolve(opts.CallbackRetry)
	if err != nil {
		return nil, err
	}
	if callbackRetry.ShouldRetry == nil {
		// Overloaded agents are never hammered with retries.
		callbackRetry.ShouldRetry = func(err error, nextAttempt int) bool {
			return !retry.IsOverloaded(err)
		}
	}
	return &AgentStep{
		runner:        opts.Runner,
		agent:         opts.Agent,
		workflowName:  opts.WorkflowName,
		logger:        opts.Logger,
		callbackRetry: callbackRetry,
	}, nil
}

// RunID returns the run's instance identifier.
func (s *AgentStep) RunID() string {
	return s.runner.RunID()
}

// WorkflowName returns the workflow binding name for this run.
func (s *AgentStep) WorkflowName() string {
	return s.workflowName
}

// Agent returns the resolved handle to the originating agent. Calls made
// directly on the handle are not durable.
func (s *AgentStep) Agent() AgentHandle {
	return s.agent
}

// ErrorReported reports whether an explicit ReportError has happened in this
// invocation. The coordinator's automatic error boundary consults this to
// avoid sending a duplicate error notification.
func (s *AgentStep) ErrorReported() bool {
	return s.errorReported.Load()
}

// Do executes a named step on the underlying runner.
func (s *AgentStep) Do(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	return s.runner.Do(ctx, name, fn)
}

// WaitForEvent suspends the run on the underlying runner.
func (s *AgentStep) WaitForEvent(ctx context.Context, name string, opts WaitOptions) (*Event, error) {
	return s.runner.WaitForEvent(ctx, name, opts)
}

// nextStepName generates a unique step name for a bridge operation. The
// per-instance counter keeps names unique even when the same operation runs
// multiple times in one run, and deterministic across replays because the
// call sequence is replayed in order.
func (s *AgentStep) nextStepName(op string) string {
	return fmt.Sprintf("__agent_%s_%d", op, s.counter.Add(1))
}

// durably runs an agent RPC inside a uniquely named step with retries.
func (s *AgentStep) durably(ctx context.Context, op string, call func(ctx context.Context) error) error {
	stepName := s.nextStepName(op)
	_, err := s.runner.Do(ctx, stepName, func(ctx context.Context) (any, error) {
		return nil, retry.Do(ctx, func(ctx context.Context, attempt int) error {
			if attempt > 1 {
				s.logger.Debug("retrying agent call", "step", stepName, "attempt", attempt)
			}
			return call(ctx)
		}, s.callbackRetry)
	})
	return err
}

func (s *AgentStep) deliver(ctx context.Context, op string, callback *Callback) error {
	return s.durably(ctx, op, func(ctx context.Context) error {
		return s.agent.DeliverCallback(ctx, callback)
	})
}

// ReportProgress notifies the agent of run progress.
func (s *AgentStep) ReportProgress(ctx context.Context, update ProgressUpdate) error {
	return s.deliver(ctx, "progress", NewProgressCallback(s.workflowName, s.RunID(), update))
}

// ReportComplete notifies the agent that the run completed, with an optional
// result value.
func (s *AgentStep) ReportComplete(ctx context.Context, result any) error {
	return s.deliver(ctx, "complete", NewCompleteCallback(s.workflowName, s.RunID(), result))
}

// ReportError notifies the agent that the run failed. It also marks the
// error as reported so the coordinator's error boundary will not send a
// second notification for the same invocation.
func (s *AgentStep) ReportError(ctx context.Context, message string) error {
	s.errorReported.Store(true)
	return s.deliver(ctx, "error", NewErrorCallback(s.workflowName, s.RunID(), message))
}

// SendEvent delivers an arbitrary event payload to the agent.
func (s *AgentStep) SendEvent(ctx context.Context, payload any) error {
	return s.deliver(ctx, "event", NewEventCallback(s.workflowName, s.RunID(), payload))
}

// UpdateAgentState replaces the agent's state.
func (s *AgentStep) UpdateAgentState(ctx context.Context, state map[string]any) error {
	return s.durably(ctx, "set_state", func(ctx context.Context) error {
		return s.agent.SetState(ctx, state)
	})
}

// MergeAgentState merges the given fields into the agent's state.
func (s *AgentStep) MergeAgentState(ctx context.Context, partial map[string]any) error {
	return s.durably(ctx, "merge_state", func(ctx context.Context) error {
		return s.agent.MergeState(ctx, partial)
	})
}

// ResetAgentState clears the agent's state.
func (s *AgentStep) ResetAgentState(ctx context.Context) error {
	return s.durably(ctx, "reset_state", func(ctx context.Context) error {
		return s.agent.ResetState(ctx)
	})
}

// reportErrorBestEffort sends an error notification unless one was already
// sent explicitly. Failures are logged and swallowed so the triggering error
// is what ultimately propagates to the step runner.
func (s *AgentStep) reportErrorBestEffort(ctx context.Context, cause error) {
	if s.errorReported.Load() {
		return
	}
	if err := s.ReportError(ctx, cause.Error()); err != nil {
		s.logger.Error("failed to report workflow error to agent",
			"error", err, "cause", cause)
	}
}
