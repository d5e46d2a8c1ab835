package agentbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/deepnoodle-ai/agentbridge/retry"
)

// Handler is a workflow entry point. The coordinator wraps Run so that, by
// the time user code executes, the system fields have been stripped from the
// params, a handle to the originating agent has been resolved, and the
// AgentStep helpers are ready to use.
//
// A handler type may embed another handler to reuse its entry point, in
// which case the embedded implementation runs (Go's method promotion), or
// declare its own Run to override it.
type Handler interface {
	Run(ctx context.Context, step *AgentStep, params Params) (any, error)
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Resolver resolves agent handles from the system params. Required.
	Resolver AgentResolver

	Logger *slog.Logger

	// CallbackRetry is the retry policy applied to agent RPC inside durable
	// steps. Zero fields take the retry package defaults. Validated when the
	// coordinator is constructed, not when a run executes.
	CallbackRetry retry.Options
}

// Coordinator connects workflow entry points to the agents that started
// them. It installs a wrapper around each handler type exactly once,
// regardless of how many handler instances are constructed or how many runs
// execute, and guards each invocation against double initialization when
// user code re-invokes a wrapped entry point.
type Coordinator struct {
	resolver      AgentResolver
	logger        *slog.Logger
	callbackRetry retry.Options

	mutex   sync.Mutex
	wrapped map[reflect.Type]*WrappedEntry
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("agent resolver is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	callbackRetry, err := retry.Resolve(opts.CallbackRetry)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		resolver:      opts.Resolver,
		logger:        opts.Logger,
		callbackRetry: callbackRetry,
		wrapped:       map[reflect.Type]*WrappedEntry{},
	}, nil
}

// WrappedEntry is the installed wrapper for one handler type. Register
// returns the identical entry for every registration of the same type, so
// wrapping is idempotent at the type level even though a new handler
// instance is typically constructed per invocation or replay.
type WrappedEntry struct {
	coordinator *Coordinator
	handlerType reflect.Type
}

// HandlerType returns the concrete handler type this entry wraps.
func (e *WrappedEntry) HandlerType() reflect.Type {
	return e.handlerType
}

// Register installs the wrapper for the handler's concrete type. Registering
// the same type again, from any instance, returns the already-installed
// entry.
func (c *Coordinator) Register(handler Handler) *WrappedEntry {
	handlerType := reflect.TypeOf(handler)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if entry, ok := c.wrapped[handlerType]; ok {
		return entry
	}
	entry := &WrappedEntry{coordinator: c, handlerType: handlerType}
	c.wrapped[handlerType] = entry
	c.logger.Debug("wrapped workflow entry point", "handler_type", handlerType.String())
	return entry
}

// Execute runs the handler's entry point under the coordinator wrapper.
func (c *Coordinator) Execute(ctx context.Context, handler Handler, runner StepRunner, params Params) (any, error) {
	return c.Register(handler).Invoke(ctx, handler, runner, params)
}

// Invoke runs one invocation of the wrapped entry point.
//
// On the first invocation in a run, the wrapper parses the system fields out
// of the params (failing fatally if any is missing), resolves the agent
// handle, builds the AgentStep, installs the call-scoped run state into the
// context, and calls the user's Run with the cleaned params. If the run
// state is already present, user code has re-invoked a wrapped entry point
// (e.g. a handler calling through to an embedded handler's entry), so the
// user method is called directly with the arguments as given, without
// re-initialization.
//
// In both branches, an error returned by user code triggers a best-effort
// error notification to the agent, unless an explicit ReportError already
// happened in this invocation, and the original error is returned unchanged.
func (e *WrappedEntry) Invoke(ctx context.Context, handler Handler, runner StepRunner, params Params) (any, error) {
	c := e.coordinator

	if state, ok := runStateFromContext(ctx); ok {
		result, err := handler.Run(ctx, state.step, params)
		if err != nil {
			state.step.reportErrorBestEffort(ctx, err)
		}
		return result, err
	}

	system, cleaned, err := ParseParams(params)
	if err != nil {
		return nil, err
	}
	agent, err := c.resolver.Resolve(ctx, system.AgentNamespace, system.AgentName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent %s/%s: %w",
			system.AgentNamespace, system.AgentName, err)
	}
	step, err := NewAgentStep(AgentStepOptions{
		Runner:        runner,
		Agent:         agent,
		WorkflowName:  system.WorkflowName,
		Logger:        c.logger,
		CallbackRetry: c.callbackRetry,
	})
	if err != nil {
		return nil, err
	}

	logger := c.logger.With(
		"workflow_id", runner.RunID(),
		"workflow_name", system.WorkflowName,
	)
	ctx = withRunState(ctx, &runState{system: system, agent: agent, step: step})
	ctx = WithLogger(ctx, logger)
	logger.Info("workflow run initialized",
		"agent", system.AgentNamespace+"/"+system.AgentName)

	result, err := handler.Run(ctx, step, cleaned)
	if err != nil {
		step.reportErrorBestEffort(ctx, err)
		return result, err
	}
	return result, nil
}
