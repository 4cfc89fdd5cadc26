package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// resultPoll is the fallback wakeup while waiting for an activity; it
// also bounds how long a cancellation request can go unnoticed.
const resultPoll = 250 * time.Millisecond

// Context is handed to a definition's Run function. It carries the
// execution identity and schedules activities.
type Context struct {
	o          *Orchestrator
	workflowID string
	tenantID   string
	input      json.RawMessage
	step       int
}

// WorkflowID returns the execution id.
func (c *Context) WorkflowID() string { return c.workflowID }

// TenantID returns the owning tenant.
func (c *Context) TenantID() string { return c.tenantID }

// Input returns the submission input.
func (c *Context) Input() json.RawMessage { return c.input }

// Execute runs the named activity and blocks until it reaches a
// terminal outcome. Steps already recorded in history are replayed
// without re-executing; a step whose last attempt failed retryably is
// resumed with the remaining attempt budget. Retryable failures are
// redelivered with exponential backoff. Execute returns ErrCancelled
// when cancellation was requested.
func (c *Context) Execute(activity string, input json.RawMessage) (json.RawMessage, error) {
	step := c.step
	c.step++

	ch := c.o.waiter(c.workflowID, step)
	defer c.o.dropWaiter(c.workflowID, step)

	enqueuedAttempt := 0
	for {
		exec, err := c.o.store.get(c.workflowID)
		if err != nil {
			return nil, err
		}
		if exec.CancelRequested {
			return nil, ErrCancelled
		}

		wantAttempt := 1
		var delayMs int64
		if inv, ok := exec.LatestInvocation(step); ok {
			switch inv.Outcome {
			case OutcomeSuccess:
				return inv.Result, nil
			case OutcomeFatalFailure:
				return nil, fmt.Errorf("activity %s: %s", inv.Activity, inv.ErrorDetail)
			case OutcomeRetryableFailure:
				if inv.Attempt >= c.o.cfg.MaxAttempts {
					return nil, fmt.Errorf("activity %s failed after %d attempts: %s",
						inv.Activity, inv.Attempt, inv.ErrorDetail)
				}
				wantAttempt = inv.Attempt + 1
				delayMs = c.o.backoffMs(inv.Attempt)
			}
		}

		if wantAttempt > enqueuedAttempt {
			task := activityTask{
				WorkflowID: c.workflowID,
				TenantID:   c.tenantID,
				StepIndex:  step,
				Activity:   activity,
				Input:      input,
				Attempt:    wantAttempt,
				TimeoutMs:  c.o.cfg.ActivityTimeoutMs,
			}
			payload, err := task.encode()
			if err != nil {
				return nil, err
			}
			if _, err := c.o.queue.Enqueue(c.o.ctx, payload, delayMs, 0); err != nil {
				return nil, err
			}
			enqueuedAttempt = wantAttempt
		}

		select {
		case <-c.o.ctx.Done():
			return nil, c.o.ctx.Err()
		case <-ch:
		case <-time.After(resultPoll):
		}
	}
}
