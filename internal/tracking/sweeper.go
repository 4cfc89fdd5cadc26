package tracking

import (
	"context"
	"math/rand"
	"time"

	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// Sweeper periodically expires PUBLISHED records whose ack window has
// elapsed. Redelivery of expired events is an operator decision; the
// sweeper only makes the condition observable.
type Sweeper struct {
	store      *Store
	logger     logpkg.Logger
	ackExpiry  time.Duration
	interval   time.Duration
	maxPerTick int
	stop       chan struct{}
	done       chan struct{}
}

// NewSweeper builds a sweeper over store. interval and ackExpiry must be
// positive; maxPerTick of 0 means 1024.
func NewSweeper(store *Store, logger logpkg.Logger, ackExpiry, interval time.Duration, maxPerTick int) *Sweeper {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("tracking-sweeper"))
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxPerTick <= 0 {
		maxPerTick = 1024
	}
	return &Sweeper{
		store:      store,
		logger:     logger,
		ackExpiry:  ackExpiry,
		interval:   interval,
		maxPerTick: maxPerTick,
	}
}

// Start runs the sweep loop until Stop or ctx cancellation. Ticks are
// jittered to avoid synchronized sweeps across instances.
func (s *Sweeper) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for {
			jitter := time.Duration(rng.Int63n(int64(s.interval/10 + 1)))
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(s.interval + jitter):
				cutoff := time.Now().Add(-s.ackExpiry).UnixMilli()
				n, err := s.store.SweepExpired(ctx, cutoff, s.maxPerTick)
				if err != nil && ctx.Err() == nil {
					s.logger.Error("expiry sweep failed", logpkg.Err(err))
					continue
				}
				if n > 0 {
					s.logger.Info("expired stale tracking records", logpkg.Int("count", n))
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (s *Sweeper) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
}
