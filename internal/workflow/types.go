package workflow

import (
	"context"
	"encoding/json"
)

// State is the lifecycle state of a workflow execution.
type State string

const (
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Outcome classifies one activity attempt.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeRetryableFailure Outcome = "RETRYABLE_FAILURE"
	OutcomeFatalFailure     Outcome = "FATAL_FAILURE"
)

// ActivityInvocation is one history entry: a single attempt of the
// activity at its step position. History is append-only; every attempt
// keeps its own record and timings.
type ActivityInvocation struct {
	StepIndex    int             `json:"stepIndex"`
	Activity     string          `json:"activity"`
	Attempt      int             `json:"attempt"`
	Outcome      Outcome         `json:"outcome"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorDetail  string          `json:"errorDetail,omitempty"`
	StartedAtMs  int64           `json:"startedAtMs"`
	FinishedAtMs int64           `json:"finishedAtMs"`
}

// Execution is the persisted state of one workflow run.
type Execution struct {
	WorkflowID      string               `json:"workflowId"`
	WorkflowType    string               `json:"workflowType"`
	TenantID        string               `json:"tenantId"`
	State           State                `json:"state"`
	Input           json.RawMessage      `json:"input,omitempty"`
	History         []ActivityInvocation `json:"history"`
	Result          json.RawMessage      `json:"result,omitempty"`
	Error           string               `json:"error,omitempty"`
	CancelRequested bool                 `json:"cancelRequested,omitempty"`
	CreatedAtMs     int64                `json:"createdAtMs"`
	UpdatedAtMs     int64                `json:"updatedAtMs"`
}

// LatestInvocation returns the most recent history entry for step.
func (e *Execution) LatestInvocation(step int) (ActivityInvocation, bool) {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].StepIndex == step {
			return e.History[i], true
		}
	}
	return ActivityInvocation{}, false
}

// Definition is a registered workflow type. Run must be deterministic:
// all side effects go through Context.Execute so they land in history.
type Definition struct {
	Type string
	Run  func(wf *Context) (json.RawMessage, error)
}

// ActivityRequest is the input handed to an activity implementation.
type ActivityRequest struct {
	WorkflowID string
	TenantID   string
	Activity   string
	Attempt    int
	Input      json.RawMessage
}

// ActivityResult reports one attempt. Outcome decides retry behavior;
// errors never carry retriability implicitly.
type ActivityResult struct {
	Outcome     Outcome
	Output      json.RawMessage
	ErrorDetail string
}

// ActivityFunc is an activity implementation. It must be idempotent:
// the task queue delivers at least once.
type ActivityFunc func(ctx context.Context, req ActivityRequest) ActivityResult

// Success builds a successful ActivityResult.
func Success(output json.RawMessage) ActivityResult {
	return ActivityResult{Outcome: OutcomeSuccess, Output: output}
}

// Retryable builds a retryable-failure ActivityResult.
func Retryable(detail string) ActivityResult {
	return ActivityResult{Outcome: OutcomeRetryableFailure, ErrorDetail: detail}
}

// Fatal builds a fatal-failure ActivityResult.
func Fatal(detail string) ActivityResult {
	return ActivityResult{Outcome: OutcomeFatalFailure, ErrorDetail: detail}
}
