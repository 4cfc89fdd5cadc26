package taskqueue

import (
	"context"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

// Queue is a named FIFO task queue with delayed delivery and leases.
type Queue struct {
	db   *pebblestore.DB
	name string

	mu      sync.Mutex
	lastSeq uint64

	// backpressure
	maxAvailable  int
	throttleSleep time.Duration

	sweepOnce sync.Once
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// Options bound the ready backlog.
type Options struct {
	// MaxAvailable blocks Enqueue while the ready count is at or above
	// this value. 0 disables backpressure.
	MaxAvailable int
	// ThrottleSleep is the poll interval while blocked.
	ThrottleSleep time.Duration
}

// OpenQueue initializes a Queue, restoring the last sequence from
// metadata. Callers must share one instance per name.
func OpenQueue(db *pebblestore.DB, name string) (*Queue, error) {
	q := &Queue{db: db, name: name, throttleSleep: 10 * time.Millisecond}
	if meta, err := db.Get(metaKey(name)); err == nil && len(meta) >= 8 {
		q.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return q, nil
}

// WithOptions applies backpressure options and returns q.
func (q *Queue) WithOptions(opts Options) *Queue {
	q.maxAvailable = opts.MaxAvailable
	if opts.ThrottleSleep > 0 {
		q.throttleSleep = opts.ThrottleSleep
	}
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// AvailableCount returns the number of immediately dequeueable tasks.
func (q *Queue) AvailableCount() int {
	meta, err := q.db.Get(metaKey(q.name))
	if err != nil || len(meta) < 12 {
		return 0
	}
	return int(binary.BigEndian.Uint32(meta[8:12]))
}

func (q *Queue) writeMeta(b *pebble.Batch, avail int) error {
	if avail < 0 {
		avail = 0
	}
	var meta [12]byte
	binary.BigEndian.PutUint64(meta[0:8], q.lastSeq)
	binary.BigEndian.PutUint32(meta[8:12], uint32(avail))
	return b.Set(metaKey(q.name), meta[:], nil)
}

// Enqueue inserts one task, delayed by delayMs when positive. While the
// ready backlog is at the cap it blocks until ctx is done, delayed
// inserts included. nowMs <= 0 means the current wall clock.
func (q *Queue) Enqueue(ctx context.Context, payload []byte, delayMs, nowMs int64) (uint64, error) {
	if nowMs <= 0 {
		nowMs = time.Now().UnixMilli()
	}
	if q.maxAvailable > 0 {
		for q.AvailableCount() >= q.maxAvailable {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(q.throttleSleep):
			}
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()

	q.lastSeq++
	seq := q.lastSeq
	if err := b.Set(taskKey(q.name, seq), payload, nil); err != nil {
		return 0, err
	}
	avail := q.AvailableCount()
	if delayMs > 0 {
		if err := b.Set(delayKey(q.name, uint64(nowMs+delayMs), seq), nil, nil); err != nil {
			return 0, err
		}
	} else {
		if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
			return 0, err
		}
		avail++
	}
	if err := q.writeMeta(b, avail); err != nil {
		return 0, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	return seq, nil
}

// LeasedTask is one dequeued task held under a lease.
type LeasedTask struct {
	Seq      uint64
	Payload  []byte
	ExpiryMs int64
}

// promoteDue moves delayed tasks whose fire time has passed into the
// ready index. Caller holds q.mu.
func (q *Queue) promoteDue(ctx context.Context, nowMs int64, max int) error {
	prefix := queuePrefix(q.name, segDelay)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()

	b := q.db.NewBatch()
	defer b.Close()
	promoted := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(prefix)+16 {
			continue
		}
		fire := int64(binary.BigEndian.Uint64(k[len(prefix) : len(prefix)+8]))
		if fire > nowMs {
			break
		}
		seq := binary.BigEndian.Uint64(k[len(k)-8:])
		if err := b.Delete(k, nil); err != nil {
			return err
		}
		if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
			return err
		}
		promoted++
		if max > 0 && promoted >= max {
			break
		}
	}
	if promoted == 0 {
		return nil
	}
	if err := q.writeMeta(b, q.AvailableCount()+promoted); err != nil {
		return err
	}
	return q.db.CommitBatch(ctx, b)
}

// Dequeue acquires up to count ready tasks in enqueue order, each under
// a lease of leaseMs. A task not completed before the lease expires is
// reclaimed and redelivered.
func (q *Queue) Dequeue(ctx context.Context, count int, leaseMs, nowMs int64) ([]LeasedTask, error) {
	if nowMs <= 0 {
		nowMs = time.Now().UnixMilli()
	}
	if count <= 0 {
		count = 1
	}
	if leaseMs <= 0 {
		leaseMs = 30_000
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.promoteDue(ctx, nowMs, count*4); err != nil {
		return nil, err
	}

	prefix := queuePrefix(q.name, segAvail)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	b := q.db.NewBatch()
	defer b.Close()
	exp := nowMs + leaseMs
	var expb [8]byte
	binary.BigEndian.PutUint64(expb[:], uint64(exp))

	tasks := make([]LeasedTask, 0, count)
	for ok := iter.First(); ok && len(tasks) < count; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(prefix)+8 {
			continue
		}
		seq := binary.BigEndian.Uint64(k[len(k)-8:])
		payload, errGet := q.db.Get(taskKey(q.name, seq))
		if errGet != nil {
			// orphaned index entry
			_ = b.Delete(k, nil)
			continue
		}
		if err := b.Set(leaseKey(q.name, seq), expb[:], nil); err != nil {
			return nil, err
		}
		if err := b.Set(leaseExpKey(q.name, uint64(exp), seq), nil, nil); err != nil {
			return nil, err
		}
		if err := b.Delete(k, nil); err != nil {
			return nil, err
		}
		tasks = append(tasks, LeasedTask{Seq: seq, Payload: payload, ExpiryMs: exp})
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	if err := q.writeMeta(b, q.AvailableCount()-len(tasks)); err != nil {
		return nil, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Complete drops finished tasks and their leases.
func (q *Queue) Complete(ctx context.Context, seqs ...uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()
	for _, seq := range seqs {
		exp, err := q.db.Get(leaseKey(q.name, seq))
		if err == nil && len(exp) >= 8 {
			e := binary.BigEndian.Uint64(exp[:8])
			if err := b.Delete(leaseExpKey(q.name, e, seq), nil); err != nil {
				return err
			}
		}
		if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
			return err
		}
		if err := b.Delete(taskKey(q.name, seq), nil); err != nil {
			return err
		}
	}
	return q.db.CommitBatch(ctx, b)
}

// ReclaimExpired returns tasks with expired leases to availability, up
// to max. It reports how many were reclaimed.
func (q *Queue) ReclaimExpired(ctx context.Context, nowMs int64, max int) (int, error) {
	if nowMs <= 0 {
		nowMs = time.Now().UnixMilli()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	prefix := queuePrefix(q.name, segLeaseExp)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := q.db.NewBatch()
	defer b.Close()
	reclaimed := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(prefix)+16 {
			continue
		}
		exp := int64(binary.BigEndian.Uint64(k[len(prefix) : len(prefix)+8]))
		if exp > nowMs {
			break
		}
		seq := binary.BigEndian.Uint64(k[len(k)-8:])
		if err := b.Delete(k, nil); err != nil {
			return reclaimed, err
		}
		if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
			return reclaimed, err
		}
		// completed tasks leave a dangling expiry entry at most; only
		// re-add tasks whose payload still exists
		if _, errGet := q.db.Get(taskKey(q.name, seq)); errGet != nil {
			continue
		}
		if err := b.Set(availKey(q.name, seq), nil, nil); err != nil {
			return reclaimed, err
		}
		reclaimed++
		if max > 0 && reclaimed >= max {
			break
		}
	}
	if reclaimed > 0 {
		if err := q.writeMeta(b, q.AvailableCount()+reclaimed); err != nil {
			return reclaimed, err
		}
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return reclaimed, err
	}
	if reclaimed > 0 {
		metrics.TasksReclaimed(reclaimed)
	}
	return reclaimed, nil
}

// StartSweeper launches the background lease reclaim loop with a
// jittered interval. Safe to call once per Queue.
func (q *Queue) StartSweeper(interval time.Duration, maxPerTick int) {
	q.sweepOnce.Do(func() {
		if interval <= 0 {
			interval = 500 * time.Millisecond
		}
		if maxPerTick <= 0 {
			maxPerTick = 1024
		}
		q.sweepStop = make(chan struct{})
		q.sweepDone = make(chan struct{})
		go func() {
			defer close(q.sweepDone)
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			for {
				jitter := time.Duration(rng.Int63n(int64(interval/10 + 1)))
				select {
				case <-q.sweepStop:
					return
				case <-time.After(interval + jitter):
					_, _ = q.ReclaimExpired(context.Background(), time.Now().UnixMilli(), maxPerTick)
				}
			}
		}()
	})
}

// StopSweeper stops the reclaim loop and waits for it to exit.
func (q *Queue) StopSweeper() {
	if q.sweepStop == nil {
		return
	}
	select {
	case <-q.sweepStop:
	default:
		close(q.sweepStop)
	}
	<-q.sweepDone
}
