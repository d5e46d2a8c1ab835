package agentbridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAgentStateIsolation(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")

	original := map[string]any{"open_tickets": 3}
	require.NoError(t, agent.SetState(ctx, original))

	// Mutating the caller's map or the returned snapshot must not leak into
	// the agent's state.
	original["open_tickets"] = 99
	snapshot := agent.State()
	snapshot["injected"] = true

	assert.Equal(t, map[string]any{"open_tickets": 3}, agent.State())

	require.NoError(t, agent.MergeState(ctx, map[string]any{"assignee": "dana"}))
	assert.Equal(t, map[string]any{"open_tickets": 3, "assignee": "dana"}, agent.State())

	require.NoError(t, agent.ResetState(ctx))
	assert.Empty(t, agent.State())
}

func TestLocalAgentSubscribe(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	subscriber := agent.Subscribe()

	callback := NewProgressCallback("ticket-triage", "run-1", ProgressUpdate{Step: "classify"})
	require.NoError(t, agent.DeliverCallback(ctx, callback))

	select {
	case received := <-subscriber:
		assert.Same(t, callback, received)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive callback")
	}
}

func TestLocalResolver(t *testing.T) {
	ctx := context.Background()
	resolver := NewLocalResolver()
	agent := NewLocalAgent("support-agent")
	resolver.Register("agents", "support-agent", agent)

	handle, err := resolver.Resolve(ctx, "agents", "support-agent")
	require.NoError(t, err)
	assert.Same(t, AgentHandle(agent), handle)

	_, err = resolver.Resolve(ctx, "agents", "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agents/unknown")

	// Namespaces are distinct even for the same instance name.
	_, err = resolver.Resolve(ctx, "other", "support-agent")
	require.Error(t, err)
}
