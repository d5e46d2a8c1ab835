package agentbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/deepnoodle-ai/agentbridge/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Options {
	return retry.Options{
		MaxAttempts: 3,
		BaseDelay:   time.Microsecond,
		MaxDelay:    time.Millisecond,
	}
}

func newTestStep(t *testing.T, agent AgentHandle, opts LocalStepRunnerOptions) *AgentStep {
	t.Helper()
	runner := NewLocalStepRunner(opts)
	step, err := NewAgentStep(AgentStepOptions{
		Runner:        runner,
		Agent:         agent,
		WorkflowName:  "ticket-triage",
		CallbackRetry: fastRetry(),
	})
	require.NoError(t, err)
	return step
}

func TestNewAgentStepValidation(t *testing.T) {
	runner := NewLocalStepRunner(LocalStepRunnerOptions{})
	agent := NewLocalAgent("support-agent")

	_, err := NewAgentStep(AgentStepOptions{Agent: agent})
	require.Error(t, err)
	require.Contains(t, err.Error(), "step runner is required")

	_, err = NewAgentStep(AgentStepOptions{Runner: runner})
	require.Error(t, err)
	require.Contains(t, err.Error(), "agent handle is required")

	// Retry options are validated at construction time.
	_, err = NewAgentStep(AgentStepOptions{
		Runner:        runner,
		Agent:         agent,
		CallbackRetry: retry.Options{MaxAttempts: -1},
	})
	require.Error(t, err)
}

func TestAgentStepReportHelpers(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	percent := 50.0
	require.NoError(t, step.ReportProgress(ctx, ProgressUpdate{
		Step: "classify", Status: "running", Percent: &percent,
	}))
	require.NoError(t, step.SendEvent(ctx, map[string]any{"kind": "note"}))
	require.NoError(t, step.ReportComplete(ctx, map[string]any{"label": "billing"}))

	callbacks := agent.Callbacks()
	require.Len(t, callbacks, 3)
	assert.Equal(t, CallbackProgress, callbacks[0].Type)
	require.NotNil(t, callbacks[0].Progress)
	assert.Equal(t, "classify", callbacks[0].Progress.Step)
	assert.Equal(t, CallbackEvent, callbacks[1].Type)
	assert.Equal(t, CallbackComplete, callbacks[2].Type)

	for _, callback := range callbacks {
		assert.Equal(t, "ticket-triage", callback.WorkflowName)
		assert.Equal(t, step.RunID(), callback.WorkflowID)
		assert.False(t, callback.Timestamp.IsZero())
	}
}

func TestAgentStepStateHelpers(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	require.NoError(t, step.UpdateAgentState(ctx, map[string]any{"phase": "triage", "open": 3}))
	assert.Equal(t, map[string]any{"phase": "triage", "open": 3}, agent.State())

	require.NoError(t, step.MergeAgentState(ctx, map[string]any{"open": 2}))
	assert.Equal(t, map[string]any{"phase": "triage", "open": 2}, agent.State())

	require.NoError(t, step.ResetAgentState(ctx))
	assert.Empty(t, agent.State())
}

func TestAgentStepUniqueStepNames(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	// The same operation invoked repeatedly gets distinct step names, so
	// every invocation delivers.
	for i := 0; i < 3; i++ {
		require.NoError(t, step.ReportProgress(ctx, ProgressUpdate{Step: "work", Status: "running"}))
	}
	assert.Len(t, agent.CallbacksOfType(CallbackProgress), 3)
}

func TestAgentStepReplayDoesNotDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	store := NewMemoryStepStore()

	deliverSequence := func() {
		step := newTestStep(t, agent, LocalStepRunnerOptions{RunID: "run-1", Store: store})
		require.NoError(t, step.ReportProgress(ctx, ProgressUpdate{Step: "work", Status: "running"}))
		require.NoError(t, step.ReportComplete(ctx, "done"))
	}

	deliverSequence()
	// Replay the same run over the same store: step names repeat in order,
	// so the memoized results are returned and nothing is re-delivered.
	deliverSequence()

	assert.Len(t, agent.Callbacks(), 2)
}

// flakyAgent fails DeliverCallback a fixed number of times before succeeding.
type flakyAgent struct {
	*LocalAgent
	mutex    sync.Mutex
	failures int
	attempts int
}

func (a *flakyAgent) DeliverCallback(ctx context.Context, callback *Callback) error {
	a.mutex.Lock()
	a.attempts++
	failing := a.attempts <= a.failures
	a.mutex.Unlock()
	if failing {
		return fmt.Errorf("attempt %d: connection reset", a.attempts)
	}
	return a.LocalAgent.DeliverCallback(ctx, callback)
}

func TestAgentStepRetriesTransientDeliveryFailures(t *testing.T) {
	ctx := context.Background()
	agent := &flakyAgent{LocalAgent: NewLocalAgent("support-agent"), failures: 2}
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	require.NoError(t, step.ReportComplete(ctx, nil))
	assert.Equal(t, 3, agent.attempts)
	assert.Len(t, agent.Callbacks(), 1)
}

func TestAgentStepDeliveryFailurePropagates(t *testing.T) {
	ctx := context.Background()
	agent := &flakyAgent{LocalAgent: NewLocalAgent("support-agent"), failures: 100}
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	err := step.ReportComplete(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 3, agent.attempts)
}

func TestAgentStepReportErrorSetsGuard(t *testing.T) {
	ctx := context.Background()
	agent := NewLocalAgent("support-agent")
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	assert.False(t, step.ErrorReported())
	require.NoError(t, step.ReportError(ctx, "bad input"))
	assert.True(t, step.ErrorReported())

	// The best-effort boundary must not send a second notification.
	step.reportErrorBestEffort(ctx, errors.New("bad input"))
	assert.Len(t, agent.CallbacksOfType(CallbackError), 1)
}

func TestAgentStepBestEffortSwallowsDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	agent := &flakyAgent{LocalAgent: NewLocalAgent("support-agent"), failures: 100}
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	// Must not panic or return; the triggering error is what matters.
	step.reportErrorBestEffort(ctx, errors.New("original failure"))
	assert.True(t, step.ErrorReported())
	assert.Empty(t, agent.Callbacks())
}

// overloadedAgent rejects every delivery with an overload error.
type overloadedAgent struct {
	*LocalAgent
	attempts int
}

func (a *overloadedAgent) DeliverCallback(ctx context.Context, callback *Callback) error {
	a.attempts++
	return retry.NewOverloadedError(errors.New("agent overloaded"))
}

func TestAgentStepDoesNotRetryOverloadedAgent(t *testing.T) {
	ctx := context.Background()
	agent := &overloadedAgent{LocalAgent: NewLocalAgent("support-agent")}
	step := newTestStep(t, agent, LocalStepRunnerOptions{})

	err := step.ReportComplete(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 1, agent.attempts)
}
