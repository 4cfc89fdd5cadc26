package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

var (
	// ErrUnknownWorkflow is returned for unregistered workflow types.
	ErrUnknownWorkflow = errors.New("workflow: unknown workflow type")
	// ErrTerminalState is returned when an operation targets a finished
	// execution.
	ErrTerminalState = errors.New("workflow: execution already terminal")
	// ErrCancelled is surfaced inside definitions when cancellation was
	// requested; the driver turns it into the CANCELLED state.
	ErrCancelled = errors.New("workflow: cancelled")
	// ErrNotStarted is returned when Submit precedes Start.
	ErrNotStarted = errors.New("workflow: orchestrator not started")
)

// Config tunes retry and timeout behavior for activities.
type Config struct {
	// MaxAttempts is the total attempt budget per activity.
	MaxAttempts int
	// BackoffBaseMs is the delay before the second attempt; it doubles
	// per failure up to BackoffCapMs.
	BackoffBaseMs int64
	BackoffCapMs  int64
	// ActivityTimeoutMs bounds a single attempt.
	ActivityTimeoutMs int64
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBaseMs <= 0 {
		c.BackoffBaseMs = 200
	}
	if c.BackoffCapMs <= 0 {
		c.BackoffCapMs = 30_000
	}
	if c.ActivityTimeoutMs <= 0 {
		c.ActivityTimeoutMs = 60_000
	}
	return c
}

// Orchestrator owns workflow executions: it persists their state,
// schedules activity attempts onto the task queue and drives definition
// functions to completion, including after a process restart.
type Orchestrator struct {
	store  *execStore
	queue  *taskqueue.Queue
	cfg    Config
	logger logpkg.Logger

	mu      sync.Mutex
	defs    map[string]Definition
	acts    map[string]ActivityFunc
	waiters map[string]chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns an Orchestrator persisting to db and scheduling onto queue.
func New(db *pebblestore.DB, queue *taskqueue.Queue, cfg Config, logger logpkg.Logger) *Orchestrator {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("workflow"))
	}
	return &Orchestrator{
		store:   &execStore{db: db},
		queue:   queue,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		defs:    map[string]Definition{},
		acts:    map[string]ActivityFunc{},
		waiters: map[string]chan struct{}{},
	}
}

// RegisterWorkflow installs a definition. Registration happens before
// Start so resumed executions find their type.
func (o *Orchestrator) RegisterWorkflow(def Definition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defs[def.Type] = def
}

// RegisterActivity installs an activity implementation.
func (o *Orchestrator) RegisterActivity(name string, fn ActivityFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.acts[name] = fn
}

// Start resumes every execution in the running index by replaying its
// history, then accepts new submissions.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)
	ids, err := o.store.listRunning()
	if err != nil {
		return err
	}
	for _, id := range ids {
		o.logger.Info("resuming workflow", logpkg.Str("workflow_id", id))
		o.wg.Add(1)
		go o.drive(id)
	}
	return nil
}

// Stop halts drivers. Interrupted executions stay RUNNING and resume on
// the next Start.
func (o *Orchestrator) Stop() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	o.wg.Wait()
}

// Submit starts a new execution of workflowType and returns its id.
func (o *Orchestrator) Submit(ctx context.Context, workflowType, tenantID string, input []byte) (string, error) {
	if o.ctx == nil {
		return "", ErrNotStarted
	}
	o.mu.Lock()
	_, ok := o.defs[workflowType]
	o.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowType)
	}
	now := time.Now().UnixMilli()
	exec := Execution{
		WorkflowID:   uuid.NewString(),
		WorkflowType: workflowType,
		TenantID:     tenantID,
		State:        StateRunning,
		Input:        input,
		History:      []ActivityInvocation{},
		CreatedAtMs:  now,
		UpdatedAtMs:  now,
	}
	o.store.mu.Lock()
	err := o.store.put(&exec)
	o.store.mu.Unlock()
	if err != nil {
		return "", err
	}
	o.wg.Add(1)
	go o.drive(exec.WorkflowID)
	return exec.WorkflowID, nil
}

// Get returns the execution for id.
func (o *Orchestrator) Get(id string) (Execution, error) {
	return o.store.get(id)
}

// Cancel requests cooperative cancellation. The execution reaches
// CANCELLED at its next activity boundary.
func (o *Orchestrator) Cancel(id string) error {
	_, err := o.store.update(id, func(e *Execution) error {
		if e.State.Terminal() {
			return ErrTerminalState
		}
		e.CancelRequested = true
		e.UpdatedAtMs = time.Now().UnixMilli()
		return nil
	})
	return err
}

// drive runs the definition function to a terminal state. History
// replay makes this safe to call again after a crash.
func (o *Orchestrator) drive(id string) {
	defer o.wg.Done()

	exec, err := o.store.get(id)
	if err != nil {
		o.logger.Error("load execution failed", logpkg.Str("workflow_id", id), logpkg.Err(err))
		return
	}
	if exec.State.Terminal() {
		return
	}
	o.mu.Lock()
	def, ok := o.defs[exec.WorkflowType]
	o.mu.Unlock()

	var (
		state   = StateFailed
		result  []byte
		detail  string
		runErr  error
		wfInput = exec.Input
	)
	if !ok {
		detail = "no definition registered for type " + exec.WorkflowType
	} else {
		wf := &Context{o: o, workflowID: id, tenantID: exec.TenantID, input: wfInput}
		result, runErr = def.Run(wf)
		switch {
		case runErr == nil:
			state = StateCompleted
		case errors.Is(runErr, ErrCancelled):
			state = StateCancelled
		case errors.Is(runErr, context.Canceled):
			// shutdown mid-flight: stay RUNNING for the next Start
			return
		default:
			detail = runErr.Error()
		}
	}

	if _, err := o.store.update(id, func(e *Execution) error {
		if e.State.Terminal() {
			return nil
		}
		e.State = state
		e.Result = result
		e.Error = detail
		e.UpdatedAtMs = time.Now().UnixMilli()
		return nil
	}); err != nil {
		o.logger.Error("finalize execution failed", logpkg.Str("workflow_id", id), logpkg.Err(err))
		return
	}
	metrics.WorkflowFinished(exec.WorkflowType, string(state))
	o.logger.Info("workflow finished",
		logpkg.Str("workflow_id", id),
		logpkg.Str("workflow_type", exec.WorkflowType),
		logpkg.Str("state", string(state)))
}

// HandleTask executes one activity attempt from the task queue. It is
// installed as the worker pool handler. A non-nil return leaves the
// task leased for redelivery.
func (o *Orchestrator) HandleTask(ctx context.Context, payload []byte) error {
	t, err := decodeActivityTask(payload)
	if err != nil {
		o.logger.Warn("dropping undecodable task", logpkg.Err(err))
		return nil
	}
	exec, err := o.store.get(t.WorkflowID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if exec.State.Terminal() {
		return nil
	}
	if prev, ok := exec.LatestInvocation(t.StepIndex); ok {
		if prev.Outcome != OutcomeRetryableFailure || prev.Attempt >= t.Attempt {
			// stale redelivery of an attempt already recorded
			return nil
		}
	}

	o.mu.Lock()
	act, ok := o.acts[t.Activity]
	o.mu.Unlock()

	startedMs := time.Now().UnixMilli()
	var res ActivityResult
	if !ok {
		res = Fatal("no activity registered: " + t.Activity)
	} else {
		res = o.runAttempt(ctx, act, t)
	}
	inv := ActivityInvocation{
		StepIndex:    t.StepIndex,
		Activity:     t.Activity,
		Attempt:      t.Attempt,
		Outcome:      res.Outcome,
		Result:       res.Output,
		ErrorDetail:  res.ErrorDetail,
		StartedAtMs:  startedMs,
		FinishedAtMs: time.Now().UnixMilli(),
	}

	if _, err := o.store.update(t.WorkflowID, func(e *Execution) error {
		if e.State.Terminal() {
			return nil
		}
		// history is append-only: every attempt keeps its own record
		if prev, ok := e.LatestInvocation(t.StepIndex); ok {
			if prev.Outcome != OutcomeRetryableFailure || prev.Attempt >= inv.Attempt {
				return nil
			}
		}
		e.History = append(e.History, inv)
		e.UpdatedAtMs = inv.FinishedAtMs
		return nil
	}); err != nil {
		return err
	}
	metrics.ActivityAttempt(t.Activity, string(res.Outcome))
	o.notify(t.WorkflowID, t.StepIndex)
	return nil
}

// runAttempt bounds one activity execution by the task's timeout.
func (o *Orchestrator) runAttempt(ctx context.Context, act ActivityFunc, t activityTask) ActivityResult {
	timeoutMs := t.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = o.cfg.ActivityTimeoutMs
	}
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	done := make(chan ActivityResult, 1)
	go func() {
		done <- act(attemptCtx, ActivityRequest{
			WorkflowID: t.WorkflowID,
			TenantID:   t.TenantID,
			Activity:   t.Activity,
			Attempt:    t.Attempt,
			Input:      t.Input,
		})
	}()
	select {
	case res := <-done:
		return res
	case <-attemptCtx.Done():
		return Retryable(fmt.Sprintf("attempt timed out after %dms", timeoutMs))
	}
}

func (o *Orchestrator) backoffMs(failures int) int64 {
	d := o.cfg.BackoffBaseMs
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= o.cfg.BackoffCapMs {
			return o.cfg.BackoffCapMs
		}
	}
	if d > o.cfg.BackoffCapMs {
		d = o.cfg.BackoffCapMs
	}
	return d
}

func waiterKey(id string, step int) string {
	return id + "/" + strconv.Itoa(step)
}

func (o *Orchestrator) waiter(id string, step int) chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := waiterKey(id, step)
	ch, ok := o.waiters[key]
	if !ok {
		ch = make(chan struct{}, 1)
		o.waiters[key] = ch
	}
	return ch
}

func (o *Orchestrator) dropWaiter(id string, step int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.waiters, waiterKey(id, step))
}

func (o *Orchestrator) notify(id string, step int) {
	o.mu.Lock()
	ch := o.waiters[waiterKey(id, step)]
	o.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
