package acks

import (
	"context"
	"errors"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/stream"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

const (
	readBatch   = 128
	idleWait    = time.Second
	backoffBase = 100 * time.Millisecond
	backoffCap  = 5 * time.Second
)

// Consumer drains one application's ack log into the tracking store.
type Consumer struct {
	rt          *runtime.Runtime
	store       *tracking.Store
	app         string
	retryBudget int
	logger      logpkg.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer returns a Consumer for app's ack log.
func NewConsumer(rt *runtime.Runtime, store *tracking.Store, app string, retryBudget int, logger logpkg.Logger) *Consumer {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("acks"))
	}
	return &Consumer{
		rt:          rt,
		store:       store,
		app:         app,
		retryBudget: retryBudget,
		logger:      logger.With(logpkg.Str("consumer_app", app)),
	}
}

// Start launches the consumption loop.
func (c *Consumer) Start(ctx context.Context) error {
	log, err := c.rt.Log(SystemNamespace, stream.AckStreamKey(c.app))
	if err != nil {
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, log)
	return nil
}

// Stop halts the loop and waits for it to exit.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Consumer) run(ctx context.Context, log *stream.Log) {
	defer close(c.done)

	// the stored cursor is the next unread position
	tok, _ := log.GetCursor(ConsumerGroup)
	backoff := backoffBase
	for ctx.Err() == nil {
		items, _, err := log.Read(stream.ReadOptions{Start: tok, Limit: readBatch})
		if err != nil {
			// a failing store is not an idle one: back off and retry
			// from the same position
			c.logger.Error("ack log read failed, backing off", logpkg.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > backoffCap {
				backoff = backoffCap
			}
			continue
		}
		if len(items) == 0 {
			backoff = backoffBase
			log.WaitForAppend(ctx, idleWait)
			continue
		}
		for _, it := range items {
			if ctx.Err() != nil {
				return
			}
			if err := c.processOne(it.Payload); err != nil {
				// tracking store stall: retry the same entry, never
				// advance past an unprocessed ack
				c.logger.Error("tracking update failed, backing off",
					logpkg.Uint64("seq", it.Seq), logpkg.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > backoffCap {
					backoff = backoffCap
				}
				break
			}
			backoff = backoffBase
			tok = stream.TokenFromSeq(it.Seq).Next()
			if err := log.CommitCursor(ConsumerGroup, tok); err != nil {
				c.logger.Error("cursor commit failed", logpkg.Err(err))
			}
		}
	}
}

// processOne applies a single ack entry. A nil return means the cursor
// may advance, including over malformed or unknown-event messages.
func (c *Consumer) processOne(payload []byte) error {
	ack, err := event.DecodeAck(payload)
	if err != nil {
		metrics.AckProcessed("malformed")
		c.logger.Warn("skipping malformed ack", logpkg.Err(err))
		return nil
	}
	rec, changed, err := c.store.ApplyAck(ack, c.retryBudget)
	switch {
	case errors.Is(err, tracking.ErrNotFound):
		// never materialize a record from an unsolicited ack
		metrics.AckProcessed("unknown_event")
		c.logger.Warn("ack references unknown event", logpkg.Str("event_id", ack.EventID))
		return nil
	case errors.Is(err, event.ErrMalformed):
		metrics.AckProcessed("malformed")
		c.logger.Warn("skipping malformed ack", logpkg.Err(err))
		return nil
	case err != nil:
		return err
	}

	if ack.Result == event.AckOK {
		metrics.AckProcessed("ok")
	} else {
		metrics.AckProcessed("error")
	}
	if changed && rec.Status == tracking.StatusAcknowledged && rec.AcknowledgedAt != nil {
		metrics.AckLatencySeconds(rec.AcknowledgedAt.Sub(rec.PublishedAt).Seconds())
	}
	if changed && rec.Status == tracking.StatusFailed {
		c.logger.Warn("event failed after exhausting retries",
			logpkg.Str("event_id", rec.EventID),
			logpkg.Int("retry_count", rec.RetryCount),
			logpkg.Str("last_error", rec.LastError))
	}
	return nil
}
