package agentbridge

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	loggerContextKey   contextKey = "logger"
	runStateContextKey contextKey = "run_state"
)

// runState is the coordinator's call-scoped state for one invocation of a
// wrapped entry point. It is never persisted: every replay reconstructs it
// from the run params. The guards here only protect against duplication
// within a single invocation; cross-replay deduplication comes from wrapping
// operations as durable steps.
type runState struct {
	system SystemParams
	agent  AgentHandle
	step   *AgentStep
}

func withRunState(ctx context.Context, state *runState) context.Context {
	return context.WithValue(ctx, runStateContextKey, state)
}

func runStateFromContext(ctx context.Context) (*runState, bool) {
	state, ok := ctx.Value(runStateContextKey).(*runState)
	return state, ok
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext returns the logger attached to the context, if any.
func LoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger, ok
}

// AgentFromContext returns the handle to the agent that originated the
// current run. It returns ErrNotInitialized when called outside of a wrapped
// entry point. Calls made directly on the handle are not durable; use the
// AgentStep helpers for replay-safe operations.
func AgentFromContext(ctx context.Context) (AgentHandle, error) {
	state, ok := runStateFromContext(ctx)
	if !ok {
		return nil, ErrNotInitialized
	}
	return state.agent, nil
}

// SystemParamsFromContext returns the system params of the current run. It
// returns ErrNotInitialized when called outside of a wrapped entry point.
func SystemParamsFromContext(ctx context.Context) (SystemParams, error) {
	state, ok := runStateFromContext(ctx)
	if !ok {
		return SystemParams{}, ErrNotInitialized
	}
	return state.system, nil
}
