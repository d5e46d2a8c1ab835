package agentbridge

import (
	"context"
)

// AgentHandle is a handle to the agent instance that originated a workflow
// run. Implementations route these calls over whatever transport reaches the
// agent. The bridge only ever requests mutations through the handle; the
// agent itself is the single owner and serializer of its own state.
type AgentHandle interface {

	// DeliverCallback delivers a workflow callback to the agent. The agent
	// interprets the callback type and updates its own tracking, state, or
	// connected clients accordingly.
	DeliverCallback(ctx context.Context, callback *Callback) error

	// SetState replaces the agent's state.
	SetState(ctx context.Context, state map[string]any) error

	// MergeState merges the given fields into the agent's state.
	MergeState(ctx context.Context, partial map[string]any) error

	// ResetState clears the agent's state.
	ResetState(ctx context.Context) error
}

// AgentResolver resolves a handle to a named agent instance within a
// namespace. Each run resolves its own handle; handles are not shared
// mutable objects across runs.
type AgentResolver interface {
	Resolve(ctx context.Context, namespace, name string) (AgentHandle, error)
}
