package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

func newTestQueue(t *testing.T) *taskqueue.Queue {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	q, err := taskqueue.OpenQueue(db, "test")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	return q
}

func TestPoolProcessesAllTasks(t *testing.T) {
	q := newTestQueue(t)
	var mu sync.Mutex
	seen := map[string]bool{}

	pool := NewPool(q, func(ctx context.Context, payload []byte) error {
		mu.Lock()
		seen[string(payload)] = true
		mu.Unlock()
		return nil
	}, Options{Concurrency: 3, PollInterval: 5 * time.Millisecond}, logpkg.Nop())

	for _, p := range []string{"a", "b", "c", "d", "e"} {
		if _, err := q.Enqueue(context.Background(), []byte(p), 0, 0); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pool.Start(context.Background())
	defer pool.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 5 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("only %d of 5 tasks processed", len(seen))
}

func TestConcurrencyIsBounded(t *testing.T) {
	q := newTestQueue(t)
	var inflight, peak int64

	pool := NewPool(q, func(ctx context.Context, payload []byte) error {
		cur := atomic.AddInt64(&inflight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inflight, -1)
		return nil
	}, Options{Concurrency: 2, PollInterval: time.Millisecond}, logpkg.Nop())

	for i := 0; i < 8; i++ {
		if _, err := q.Enqueue(context.Background(), []byte{byte(i)}, 0, 0); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pool.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	pool.Stop()

	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Fatalf("peak concurrency %d exceeds pool size 2", p)
	}
}

func TestFailedHandlerLeavesTaskForRedelivery(t *testing.T) {
	q := newTestQueue(t)
	var attempts int64

	pool := NewPool(q, func(ctx context.Context, payload []byte) error {
		if atomic.AddInt64(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, Options{Concurrency: 1, LeaseMs: 100, PollInterval: 5 * time.Millisecond}, logpkg.Nop())

	if _, err := q.Enqueue(context.Background(), []byte("retry me"), 0, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pool.Start(context.Background())
	defer pool.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(&attempts) >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task was not redelivered: %d attempts", attempts)
}
