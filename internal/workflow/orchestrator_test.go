package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/worker"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BackoffBaseMs: 5, BackoffCapMs: 20, ActivityTimeoutMs: 5_000}
}

type harness struct {
	db   *pebblestore.DB
	orch *testOrch
}

// testOrch pairs an orchestrator with a deferred start so tests can
// register definitions first.
type testOrch struct {
	*Orchestrator
	start func()
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &harness{db: db, orch: newOrchOn(t, db, cfg)}
}

// newOrchOn builds and starts an orchestrator plus its worker pool on
// an existing db, so tests can simulate a process restart.
func newOrchOn(t *testing.T, db *pebblestore.DB, cfg Config) *testOrch {
	t.Helper()
	q, err := taskqueue.OpenQueue(db, "wf-test")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	o := New(db, q, cfg, logpkg.Nop())
	pool := worker.NewPool(q, o.HandleTask, worker.Options{Concurrency: 2, PollInterval: 5 * time.Millisecond}, logpkg.Nop())

	return &testOrch{Orchestrator: o, start: func() {
		if err := o.Start(context.Background()); err != nil {
			t.Fatalf("start orchestrator: %v", err)
		}
		pool.Start(context.Background())
		t.Cleanup(func() {
			o.Stop()
			pool.Stop()
		})
	}}
}

func waitTerminal(t *testing.T, o *testOrch, id string) Execution {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := o.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if exec.State.Terminal() {
			return exec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("workflow never reached a terminal state")
	return Execution{}
}

func TestActivitiesRunInDeclaredOrder(t *testing.T) {
	h := newHarness(t, fastConfig())
	var order atomic.Value
	order.Store("")

	h.orch.RegisterActivity("first", func(ctx context.Context, req ActivityRequest) ActivityResult {
		order.Store(order.Load().(string) + "1")
		return Success(json.RawMessage(`{"step":1}`))
	})
	h.orch.RegisterActivity("second", func(ctx context.Context, req ActivityRequest) ActivityResult {
		order.Store(order.Load().(string) + "2")
		return Success(json.RawMessage(`{"step":2}`))
	})
	h.orch.RegisterWorkflow(Definition{Type: "two-step", Run: func(wf *Context) (json.RawMessage, error) {
		if _, err := wf.Execute("first", wf.Input()); err != nil {
			return nil, err
		}
		return wf.Execute("second", nil)
	}})
	h.orch.start()

	id, err := h.orch.Submit(context.Background(), "two-step", "t1", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	exec := waitTerminal(t, h.orch, id)
	if exec.State != StateCompleted {
		t.Fatalf("state = %s (%s)", exec.State, exec.Error)
	}
	if order.Load().(string) != "12" {
		t.Fatalf("activities ran out of order: %q", order.Load())
	}
	if len(exec.History) != 2 || exec.History[0].Activity != "first" || exec.History[1].Activity != "second" {
		t.Fatalf("history: %+v", exec.History)
	}
	if string(exec.Result) != `{"step":2}` {
		t.Fatalf("result = %s", exec.Result)
	}
}

func TestRetryableFailureExhaustsAttemptBudget(t *testing.T) {
	h := newHarness(t, fastConfig())
	var aRuns, bRuns int64

	h.orch.RegisterActivity("a", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&aRuns, 1)
		return Success(nil)
	})
	h.orch.RegisterActivity("b", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&bRuns, 1)
		return Retryable("downstream unavailable")
	})
	h.orch.RegisterWorkflow(Definition{Type: "flaky", Run: func(wf *Context) (json.RawMessage, error) {
		if _, err := wf.Execute("a", nil); err != nil {
			return nil, err
		}
		return wf.Execute("b", nil)
	}})
	h.orch.start()

	id, err := h.orch.Submit(context.Background(), "flaky", "t1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	exec := waitTerminal(t, h.orch, id)
	if exec.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", exec.State)
	}
	if got := atomic.LoadInt64(&aRuns); got != 1 {
		t.Fatalf("a ran %d times, want 1", got)
	}
	if got := atomic.LoadInt64(&bRuns); got != 3 {
		t.Fatalf("b ran %d times, want the full budget of 3", got)
	}
	// every attempt is its own history record: a=SUCCESS plus the full
	// budget of failed b attempts
	if len(exec.History) != 4 {
		t.Fatalf("history entries = %d, want 4: %+v", len(exec.History), exec.History)
	}
	if exec.History[0].StepIndex != 0 || exec.History[0].Activity != "a" || exec.History[0].Outcome != OutcomeSuccess {
		t.Fatalf("step a invocation: %+v", exec.History[0])
	}
	for i, inv := range exec.History[1:] {
		want := i + 1
		if inv.StepIndex != 1 || inv.Activity != "b" || inv.Attempt != want || inv.Outcome != OutcomeRetryableFailure {
			t.Fatalf("b attempt %d invocation: %+v", want, inv)
		}
		if inv.FinishedAtMs < inv.StartedAtMs {
			t.Fatalf("b attempt %d has inverted timings: %+v", want, inv)
		}
	}
}

func TestFatalFailureSkipsRetries(t *testing.T) {
	h := newHarness(t, fastConfig())
	var runs int64

	h.orch.RegisterActivity("explode", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&runs, 1)
		return Fatal("unrecoverable input")
	})
	h.orch.RegisterWorkflow(Definition{Type: "doomed", Run: func(wf *Context) (json.RawMessage, error) {
		return wf.Execute("explode", nil)
	}})
	h.orch.start()

	id, err := h.orch.Submit(context.Background(), "doomed", "t1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	exec := waitTerminal(t, h.orch, id)
	if exec.State != StateFailed {
		t.Fatalf("state = %s", exec.State)
	}
	if got := atomic.LoadInt64(&runs); got != 1 {
		t.Fatalf("fatal activity ran %d times, want 1", got)
	}
}

func TestResumeReplaysHistoryWithoutReExecuting(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// a RUNNING execution interrupted after its first step committed
	interrupted := Execution{
		WorkflowID:   "wf-interrupted",
		WorkflowType: "two-step",
		TenantID:     "t1",
		State:        StateRunning,
		Input:        json.RawMessage(`{}`),
		History: []ActivityInvocation{{
			Activity: "first",
			Attempt:  1,
			Outcome:  OutcomeSuccess,
			Result:   json.RawMessage(`{"from":"before-restart"}`),
		}},
		CreatedAtMs: time.Now().UnixMilli(),
		UpdatedAtMs: time.Now().UnixMilli(),
	}
	seed := &execStore{db: db}
	if err := seed.put(&interrupted); err != nil {
		t.Fatalf("seed execution: %v", err)
	}

	o := newOrchOn(t, db, fastConfig())
	var firstRuns, secondRuns int64
	o.RegisterActivity("first", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&firstRuns, 1)
		return Success(nil)
	})
	o.RegisterActivity("second", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&secondRuns, 1)
		return Success(req.Input)
	})
	o.RegisterWorkflow(Definition{Type: "two-step", Run: func(wf *Context) (json.RawMessage, error) {
		carried, err := wf.Execute("first", wf.Input())
		if err != nil {
			return nil, err
		}
		return wf.Execute("second", carried)
	}})
	o.start()

	exec := waitTerminal(t, o, "wf-interrupted")
	if exec.State != StateCompleted {
		t.Fatalf("state = %s (%s)", exec.State, exec.Error)
	}
	if got := atomic.LoadInt64(&firstRuns); got != 0 {
		t.Fatalf("replayed step re-executed %d times", got)
	}
	if got := atomic.LoadInt64(&secondRuns); got != 1 {
		t.Fatalf("resumed step ran %d times, want 1", got)
	}
	// the resumed step consumed the pre-restart result via replay
	if string(exec.Result) != `{"from":"before-restart"}` {
		t.Fatalf("result = %s", exec.Result)
	}
}

func TestCancelTakesEffectAtActivityBoundary(t *testing.T) {
	h := newHarness(t, fastConfig())
	cancelIssued := make(chan struct{})
	var secondRuns int64

	h.orch.RegisterActivity("first", func(ctx context.Context, req ActivityRequest) ActivityResult {
		<-cancelIssued
		return Success(nil)
	})
	h.orch.RegisterActivity("second", func(ctx context.Context, req ActivityRequest) ActivityResult {
		atomic.AddInt64(&secondRuns, 1)
		return Success(nil)
	})
	h.orch.RegisterWorkflow(Definition{Type: "cancellable", Run: func(wf *Context) (json.RawMessage, error) {
		if _, err := wf.Execute("first", nil); err != nil {
			return nil, err
		}
		return wf.Execute("second", nil)
	}})
	h.orch.start()

	id, err := h.orch.Submit(context.Background(), "cancellable", "t1", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.orch.Cancel(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(cancelIssued)

	exec := waitTerminal(t, h.orch, id)
	if exec.State != StateCancelled {
		t.Fatalf("state = %s, want CANCELLED", exec.State)
	}
	if got := atomic.LoadInt64(&secondRuns); got != 0 {
		t.Fatalf("activity after cancellation ran %d times", got)
	}
	if err := h.orch.Cancel(id); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("cancel on terminal execution: %v", err)
	}
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	h := newHarness(t, fastConfig())
	h.orch.start()
	if _, err := h.orch.Submit(context.Background(), "nope", "t1", nil); !errors.Is(err, ErrUnknownWorkflow) {
		t.Fatalf("err = %v, want ErrUnknownWorkflow", err)
	}
}
