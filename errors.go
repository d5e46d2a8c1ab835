package agentbridge

import (
	"errors"
	"fmt"
)

// ErrNotInitialized indicates that a bridge operation was attempted outside
// of an initialized workflow run. This is a programming error: the agent
// handle only exists after the coordinator wrapper has run.
var ErrNotInitialized = errors.New("agent handle is not initialized for this run")

// ConfigError indicates the run payload was missing a required system field.
// It is fatal: raised before any user code executes and never retried.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required system field %q in workflow params", e.Field)
}

// RejectionError is returned by WaitForApproval when the approval decision
// rejects the run. The rejection has already been durably reported to the
// agent by the time this error is returned.
type RejectionError struct {
	Reason     string
	WorkflowID string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("workflow %s rejected: %s", e.WorkflowID, e.Reason)
}

// ApprovalTimeoutError is returned by WaitForApproval when the underlying
// event wait elapses without a decision arriving.
type ApprovalTimeoutError struct {
	StepName   string
	WorkflowID string
}

func (e *ApprovalTimeoutError) Error() string {
	return fmt.Sprintf("workflow %s timed out waiting for approval at step %q", e.WorkflowID, e.StepName)
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}
