package agentbridge

import (
	"time"

	"go.jetify.com/typeid"
)

// CallbackType discriminates the callback variants delivered to an agent.
type CallbackType string

const (
	CallbackProgress CallbackType = "progress"
	CallbackComplete CallbackType = "complete"
	CallbackError    CallbackType = "error"
	CallbackEvent    CallbackType = "event"
)

// ProgressUpdate is the default progress payload shape.
type ProgressUpdate struct {
	Step    string   `json:"step"`
	Status  string   `json:"status"`
	Percent *float64 `json:"percent,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Callback is a notification sent from a workflow run back to the agent that
// started it. Exactly one of the variant fields is populated, according to
// Type. WorkflowID is the run's instance identifier, not the binding name.
type Callback struct {
	ID           string          `json:"id"`
	Type         CallbackType    `json:"type"`
	WorkflowName string          `json:"workflow_name"`
	WorkflowID   string          `json:"workflow_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Progress     *ProgressUpdate `json:"progress,omitempty"`
	Result       any             `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	Event        any             `json:"event,omitempty"`
}

// NewCallbackID returns a new typed ID for callback identification.
func NewCallbackID() string {
	id, err := typeid.WithPrefix("cb")
	if err != nil {
		panic(err)
	}
	return id.String()
}

func newCallback(callbackType CallbackType, workflowName, workflowID string) *Callback {
	return &Callback{
		ID:           NewCallbackID(),
		Type:         callbackType,
		WorkflowName: workflowName,
		WorkflowID:   workflowID,
		Timestamp:    time.Now(),
	}
}

// NewProgressCallback creates a progress callback for the given run.
func NewProgressCallback(workflowName, workflowID string, update ProgressUpdate) *Callback {
	callback := newCallback(CallbackProgress, workflowName, workflowID)
	callback.Progress = &update
	return callback
}

// NewCompleteCallback creates a completion callback carrying an optional
// result value.
func NewCompleteCallback(workflowName, workflowID string, result any) *Callback {
	callback := newCallback(CallbackComplete, workflowName, workflowID)
	callback.Result = result
	return callback
}

// NewErrorCallback creates an error callback carrying a message.
func NewErrorCallback(workflowName, workflowID, message string) *Callback {
	callback := newCallback(CallbackError, workflowName, workflowID)
	callback.Error = message
	return callback
}

// NewEventCallback creates an event callback carrying an arbitrary payload.
func NewEventCallback(workflowName, workflowID string, payload any) *Callback {
	callback := newCallback(CallbackEvent, workflowName, workflowID)
	callback.Event = payload
	return callback
}
