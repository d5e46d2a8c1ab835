package agentbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Defaults for WaitForApproval.
const (
	DefaultApprovalStepName  = "wait-for-approval"
	DefaultApprovalEventType = "approval"
)

// ApprovalPayload is the structured approve/reject decision delivered to a
// suspended run. It is produced externally, by whatever approves or rejects,
// and consumed exactly once per suspension point.
type ApprovalPayload struct {
	Approved bool            `json:"approved"`
	Reason   string          `json:"reason,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ApprovalOptions configures a WaitForApproval suspension point.
type ApprovalOptions struct {
	// StepName names the suspension step. Defaults to "wait-for-approval".
	StepName string

	// EventType is the event type tag the wait matches on. Defaults to
	// "approval".
	EventType string

	// Timeout bounds the wait. Zero waits indefinitely. Timeout behavior is
	// delegated entirely to the underlying event-wait primitive.
	Timeout time.Duration
}

// WaitForApproval suspends the run until an approval decision arrives.
//
// On approval, the decision's metadata is returned. On rejection, the
// rejection reason is durably reported to the agent as an error callback
// before a RejectionError is returned. If the wait times out, an
// ApprovalTimeoutError is returned.
func (s *AgentStep) WaitForApproval(ctx context.Context, opts ApprovalOptions) (json.RawMessage, error) {
	if opts.StepName == "" {
		opts.StepName = DefaultApprovalStepName
	}
	if opts.EventType == "" {
		opts.EventType = DefaultApprovalEventType
	}

	event, err := s.runner.WaitForEvent(ctx, opts.StepName, WaitOptions{
		Type:    opts.EventType,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, &ApprovalTimeoutError{StepName: opts.StepName, WorkflowID: s.RunID()}
	}

	var payload ApprovalPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode approval payload: %w", err)
	}

	if !payload.Approved {
		reason := payload.Reason
		if reason == "" {
			reason = "Workflow rejected"
		}
		if err := s.ReportError(ctx, reason); err != nil {
			return nil, err
		}
		return nil, &RejectionError{Reason: reason, WorkflowID: s.RunID()}
	}
	return payload.Metadata, nil
}

// WaitForApproval suspends the run until an approval decision arrives and
// decodes the approval metadata into T. This is a package-level generic
// function because Go does not allow generic methods on non-generic receiver
// types.
func WaitForApproval[T any](ctx context.Context, step *AgentStep, opts ApprovalOptions) (T, error) {
	var metadata T
	raw, err := step.WaitForApproval(ctx, opts)
	if err != nil {
		return metadata, err
	}
	if len(raw) == 0 {
		return metadata, nil
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to decode approval metadata: %w", err)
	}
	return metadata, nil
}
