package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// Handler processes one dequeued task payload. Returning an error keeps
// the task leased until expiry, after which it is redelivered.
type Handler func(ctx context.Context, payload []byte) error

// Options size the pool.
type Options struct {
	// Concurrency is the number of worker slots. Defaults to 4.
	Concurrency int
	// LeaseMs bounds how long one task may be held. Defaults to 30s.
	LeaseMs int64
	// PollInterval is the idle wait between empty dequeues.
	PollInterval time.Duration
}

// Pool drains a queue with a fixed number of concurrent workers.
type Pool struct {
	queue   *taskqueue.Queue
	handler Handler
	opts    Options
	logger  logpkg.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool returns an unstarted Pool.
func NewPool(queue *taskqueue.Queue, handler Handler, opts Options, logger logpkg.Logger) *Pool {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.LeaseMs <= 0 {
		opts.LeaseMs = 30_000
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("worker"))
	}
	return &Pool{queue: queue, handler: handler, opts: opts, logger: logger}
}

// Start launches the worker slots and the lease reclaim sweeper.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.queue.StartSweeper(time.Duration(p.opts.LeaseMs/4)*time.Millisecond, 0)
	for i := 0; i < p.opts.Concurrency; i++ {
		p.wg.Add(1)
		go p.runSlot(ctx)
	}
}

// Stop drains the pool: running handlers finish, then the sweeper stops.
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.queue.StopSweeper()
}

func (p *Pool) runSlot(ctx context.Context) {
	defer p.wg.Done()
	for ctx.Err() == nil {
		tasks, err := p.queue.Dequeue(ctx, 1, p.opts.LeaseMs, 0)
		if err != nil {
			p.logger.Error("dequeue failed", logpkg.Err(err))
		}
		if len(tasks) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.opts.PollInterval):
			}
			continue
		}
		t := tasks[0]
		if err := p.handler(ctx, t.Payload); err != nil {
			// lease expiry will redeliver
			p.logger.Warn("task handler failed, leaving for redelivery",
				logpkg.Uint64("seq", t.Seq), logpkg.Err(err))
			continue
		}
		if err := p.queue.Complete(context.Background(), t.Seq); err != nil {
			p.logger.Error("task complete failed", logpkg.Uint64("seq", t.Seq), logpkg.Err(err))
		}
	}
}
