package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/config"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/stream"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

func newTestPublisher(t *testing.T) (*Publisher, *runtime.Runtime, *tracking.Store) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  config.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	store := tracking.NewStore(rt.DB(), logpkg.Nop())
	return NewPublisher(rt, store, event.DefaultRegistry(), logpkg.Nop()), rt, store
}

func creditRequest() Request {
	return Request{
		TenantID:            "t1",
		EventType:           event.TypeCreditAllocated,
		ConsumerApplication: "crm",
		EntityType:          "credit_allocation",
		EntityID:            "E1",
		Data:                json.RawMessage(`{"allocationId":"A1","amount":100}`),
		PublishedBy:         "wrapper",
	}
}

func TestPublishAppendsEnvelopeAndTracksIt(t *testing.T) {
	p, rt, store := newTestPublisher(t)

	env, err := p.Publish(context.Background(), creditRequest())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if env.EventID == "" {
		t.Fatal("publish must assign an eventId")
	}

	log, err := rt.Log("t1", stream.EventStreamKey("crm", event.TypeCreditAllocated))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	items, _, err := log.Read(stream.ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("stream entries = %d, want 1", len(items))
	}
	got, err := event.DecodeEnvelope(items[0].Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventID != env.EventID || got.EventType != env.EventType || got.EntityID != "E1" {
		t.Fatalf("envelope mismatch: %+v", got)
	}

	rec, err := store.Get(env.EventID)
	if err != nil {
		t.Fatalf("tracking get: %v", err)
	}
	if rec.Status != tracking.StatusPublished || rec.ConsumerApplication != "crm" {
		t.Fatalf("tracking record: %+v", rec)
	}
}

func TestPublishedEventCanBeAcknowledged(t *testing.T) {
	p, _, store := newTestPublisher(t)

	env, err := p.Publish(context.Background(), creditRequest())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	ack := event.Ack{
		EventID:             env.EventID,
		TenantID:            "t1",
		ConsumerApplication: "crm",
		Result:              event.AckOK,
		AckTimestamp:        time.Now(),
	}
	rec, changed, err := store.ApplyAck(ack, 3)
	if err != nil {
		t.Fatalf("apply ack: %v", err)
	}
	if !changed || rec.Status != tracking.StatusAcknowledged || rec.AcknowledgedAt == nil {
		t.Fatalf("record after ack: %+v changed=%v", rec, changed)
	}
}

func TestPublishPreservesPartitionOrder(t *testing.T) {
	p, rt, _ := newTestPublisher(t)

	var ids []string
	for i := 0; i < 5; i++ {
		env, err := p.Publish(context.Background(), creditRequest())
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		ids = append(ids, env.EventID)
	}

	log, err := rt.Log("t1", stream.EventStreamKey("crm", event.TypeCreditAllocated))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	items, _, err := log.Read(stream.ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != len(ids) {
		t.Fatalf("entries = %d, want %d", len(items), len(ids))
	}
	for i, it := range items {
		env, err := event.DecodeEnvelope(it.Payload)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if env.EventID != ids[i] {
			t.Fatalf("entry %d is %s, want %s", i, env.EventID, ids[i])
		}
	}
}

func TestPublishRejectsUnknownEventType(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	req := creditRequest()
	req.EventType = "invoice.settled"
	if _, err := p.Publish(context.Background(), req); !errors.Is(err, event.ErrUnknownEventType) {
		t.Fatalf("err = %v, want ErrUnknownEventType", err)
	}
}

func TestPublishRejectsInvalidPayload(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	req := creditRequest()
	req.Data = json.RawMessage(`{"allocationId":"A1","amount":0}`)
	if _, err := p.Publish(context.Background(), req); !errors.Is(err, event.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestPublishRequiresConsumerApplication(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	req := creditRequest()
	req.ConsumerApplication = ""
	if _, err := p.Publish(context.Background(), req); !errors.Is(err, event.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
