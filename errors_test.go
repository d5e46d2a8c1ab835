package agentbridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: AgentNameKey}
	assert.Contains(t, err.Error(), "__agent_name")

	var configErr *ConfigError
	assert.True(t, errors.As(fmt.Errorf("run failed: %w", err), &configErr))
	assert.Equal(t, AgentNameKey, configErr.Field)
}

func TestIsRejection(t *testing.T) {
	rejection := &RejectionError{Reason: "too risky", WorkflowID: "run-1"}
	assert.True(t, IsRejection(rejection))
	assert.True(t, IsRejection(fmt.Errorf("workflow failed: %w", rejection)))
	assert.False(t, IsRejection(errors.New("unrelated")))
	assert.False(t, IsRejection(nil))
	assert.Contains(t, rejection.Error(), "too risky")
}

func TestApprovalTimeoutError(t *testing.T) {
	err := &ApprovalTimeoutError{StepName: "wait-for-approval", WorkflowID: "run-1"}
	assert.Contains(t, err.Error(), "wait-for-approval")
	assert.False(t, IsRejection(err))
}
