package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/metrics"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/stream"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	"github.com/Cdineshreddy12/Wrapper-sub015/pkg/id"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// ErrRetriable marks a publish the caller may safely repeat. The event
// may already be in the stream; retrying re-appends but tracking record
// creation stays idempotent, so downstream consumers dedupe by eventId.
var ErrRetriable = errors.New("publish: retriable failure")

// Request describes one event to publish.
type Request struct {
	TenantID            string
	EventType           string
	ConsumerApplication string
	EntityType          string
	EntityID            string
	Data                json.RawMessage
	PublishedBy         string
}

// Publisher builds envelopes and writes them to the stream transport
// plus the tracking store.
type Publisher struct {
	rt     *runtime.Runtime
	store  *tracking.Store
	reg    *event.Registry
	gen    *id.Generator
	logger logpkg.Logger
}

// NewPublisher returns a Publisher. A nil registry disables payload
// schema checks (payloads travel opaque either way).
func NewPublisher(rt *runtime.Runtime, store *tracking.Store, reg *event.Registry, logger logpkg.Logger) *Publisher {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("publish"))
	}
	return &Publisher{rt: rt, store: store, reg: reg, gen: id.NewGenerator(), logger: logger}
}

// Publish assigns a fresh eventId, appends the envelope to the stream
// keyed by (consumerApplication, eventType), then creates the PUBLISHED
// tracking record. The append makes the event visible to all consumer
// cursors; Publish never blocks on consumer processing.
func (p *Publisher) Publish(ctx context.Context, req Request) (event.Envelope, error) {
	if req.ConsumerApplication == "" {
		return event.Envelope{}, fmt.Errorf("%w: missing consumerApplication", event.ErrMalformed)
	}
	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if p.reg != nil {
		if err := p.reg.Validate(req.EventType, data); err != nil {
			return event.Envelope{}, err
		}
	}

	env := event.Envelope{
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		EventType:   req.EventType,
		TenantID:    req.TenantID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Data:        data,
		PublishedBy: req.PublishedBy,
	}
	payload, err := env.Encode()
	if err != nil {
		return event.Envelope{}, err
	}

	log, err := p.rt.Log(req.TenantID, stream.EventStreamKey(req.ConsumerApplication, req.EventType))
	if err != nil {
		return event.Envelope{}, fmt.Errorf("%w: open stream: %v", ErrRetriable, err)
	}
	header := stream.EncodeHeader(p.gen.Next(), env.Timestamp.UnixMilli())
	if _, err := log.Append(ctx, []stream.AppendRecord{{Header: header, Payload: payload}}); err != nil {
		return event.Envelope{}, fmt.Errorf("%w: append: %v", ErrRetriable, err)
	}

	rec := tracking.Record{
		EventID:             env.EventID,
		TenantID:            env.TenantID,
		EventType:           env.EventType,
		ConsumerApplication: req.ConsumerApplication,
		Status:              tracking.StatusPublished,
		PublishedAt:         env.Timestamp,
	}
	if err := p.store.Create(rec); err != nil {
		// the append landed; the caller retries and Create no-ops
		return event.Envelope{}, fmt.Errorf("%w: tracking: %v", ErrRetriable, err)
	}

	metrics.EventPublished(env.TenantID, env.EventType)
	p.logger.Debug("event published",
		logpkg.Str("event_id", env.EventID),
		logpkg.Str("tenant", env.TenantID),
		logpkg.Str("event_type", env.EventType),
		logpkg.Str("consumer_app", req.ConsumerApplication))
	return env, nil
}
