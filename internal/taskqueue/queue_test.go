package taskqueue

import (
	"context"
	"testing"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	q, err := OpenQueue(db, "wf")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	return q
}

func TestEnqueueDequeueComplete(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		if _, err := q.Enqueue(ctx, []byte(p), 0, 0); err != nil {
			t.Fatalf("enqueue %s: %v", p, err)
		}
	}
	if got := q.AvailableCount(); got != 3 {
		t.Fatalf("available = %d, want 3", got)
	}

	tasks, err := q.Dequeue(ctx, 2, 30_000, 0)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 2 || string(tasks[0].Payload) != "a" || string(tasks[1].Payload) != "b" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if got := q.AvailableCount(); got != 1 {
		t.Fatalf("available after dequeue = %d, want 1", got)
	}

	if err := q.Complete(ctx, tasks[0].Seq, tasks[1].Seq); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// completed tasks must not come back even after their lease window
	if n, err := q.ReclaimExpired(ctx, time.Now().UnixMilli()+60_000, 0); err != nil || n != 0 {
		t.Fatalf("reclaim after complete: n=%d err=%v", n, err)
	}
}

func TestDelayedTaskNotVisibleUntilDue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	if _, err := q.Enqueue(ctx, []byte("later"), 5_000, now); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	tasks, err := q.Dequeue(ctx, 1, 30_000, now)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("delayed task delivered early: %+v", tasks)
	}

	tasks, err = q.Dequeue(ctx, 1, 30_000, now+5_001)
	if err != nil {
		t.Fatalf("dequeue after due: %v", err)
	}
	if len(tasks) != 1 || string(tasks[0].Payload) != "later" {
		t.Fatalf("due task missing: %+v", tasks)
	}
}

func TestExpiredLeaseIsReclaimedAndRedelivered(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	if _, err := q.Enqueue(ctx, []byte("crashy"), 0, now); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	first, err := q.Dequeue(ctx, 1, 1_000, now)
	if err != nil || len(first) != 1 {
		t.Fatalf("dequeue: %v (%d tasks)", err, len(first))
	}

	// lease still live: nothing to reclaim
	if n, _ := q.ReclaimExpired(ctx, now+500, 0); n != 0 {
		t.Fatalf("reclaimed live lease: %d", n)
	}
	n, err := q.ReclaimExpired(ctx, now+1_001, 0)
	if err != nil || n != 1 {
		t.Fatalf("reclaim: n=%d err=%v", n, err)
	}

	second, err := q.Dequeue(ctx, 1, 1_000, now+1_002)
	if err != nil || len(second) != 1 {
		t.Fatalf("redelivery dequeue: %v (%d tasks)", err, len(second))
	}
	if second[0].Seq != first[0].Seq || string(second[0].Payload) != "crashy" {
		t.Fatalf("redelivered task differs: %+v vs %+v", second[0], first[0])
	}
}

func TestEnqueueBlocksAtCapUntilContextDone(t *testing.T) {
	q := newTestQueue(t).WithOptions(Options{MaxAvailable: 1, ThrottleSleep: time.Millisecond})
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, []byte("one"), 0, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := q.Enqueue(short, []byte("two"), 0, 0); err == nil {
		t.Fatal("enqueue above cap must block until ctx is done")
	}

	// draining frees the slot
	tasks, err := q.Dequeue(ctx, 1, 30_000, 0)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("dequeue: %v", err)
	}
	if _, err := q.Enqueue(ctx, []byte("two"), 0, 0); err != nil {
		t.Fatalf("enqueue after drain: %v", err)
	}
}

func TestDelayedEnqueueBlocksAtCap(t *testing.T) {
	q := newTestQueue(t).WithOptions(Options{MaxAvailable: 1, ThrottleSleep: time.Millisecond})
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, []byte("one"), 0, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// a delayed insert must respect the cap too
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := q.Enqueue(short, []byte("two"), 500, 0); err == nil {
		t.Fatal("delayed enqueue above cap must block until ctx is done")
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	q, err := OpenQueue(db, "wf")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	seq1, err := q.Enqueue(ctx, []byte("persisted"), 0, 0)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	q2, err := OpenQueue(db2, "wf")
	if err != nil {
		t.Fatalf("reopen queue: %v", err)
	}
	seq2, err := q2.Enqueue(ctx, []byte("after"), 0, 0)
	if err != nil {
		t.Fatalf("enqueue after reopen: %v", err)
	}
	if seq2 != seq1+1 {
		t.Fatalf("sequence not restored: %d then %d", seq1, seq2)
	}
	tasks, err := q2.Dequeue(ctx, 10, 30_000, 0)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("dequeue after reopen: %v (%d tasks)", err, len(tasks))
	}
	if string(tasks[0].Payload) != "persisted" {
		t.Fatalf("first task = %q", tasks[0].Payload)
	}
}
