package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validEnvelope() Envelope {
	return Envelope{
		EventID:     "evt-1",
		Timestamp:   time.Now(),
		EventType:   TypeCreditAllocated,
		TenantID:    "t1",
		EntityType:  "credit",
		EntityID:    "e1",
		Data:        json.RawMessage(`{"allocationId":"a1","amount":100}`),
		PublishedBy: "api",
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := validEnvelope()
	b, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.EventID != in.EventID || out.EventType != in.EventType || out.TenantID != in.TenantID {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestEnvelopeToleratesUnknownFields(t *testing.T) {
	b := []byte(`{"eventId":"e","timestamp":"2026-01-02T15:04:05Z","eventType":"role.updated",
		"tenantId":"t1","entityType":"role","entityId":"r1","data":{},"publishedBy":"api",
		"futureField":{"nested":true}}`)
	if _, err := DecodeEnvelope(b); err != nil {
		t.Fatalf("unknown field rejected: %v", err)
	}
}

func TestEnvelopeRejectsMissingRequired(t *testing.T) {
	for _, drop := range []string{"eventId", "timestamp", "eventType", "tenantId", "entityType", "entityId", "publishedBy"} {
		e := validEnvelope()
		raw, _ := json.Marshal(&e)
		var m map[string]json.RawMessage
		_ = json.Unmarshal(raw, &m)
		delete(m, drop)
		b, _ := json.Marshal(m)
		if _, err := DecodeEnvelope(b); !errors.Is(err, ErrMalformed) {
			t.Fatalf("missing %s accepted (err=%v)", drop, err)
		}
	}
}

func TestAckValidate(t *testing.T) {
	a := Ack{EventID: "e", TenantID: "t", ConsumerApplication: "crm", Result: AckOK, AckTimestamp: time.Now()}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid ack rejected: %v", err)
	}
	a.Result = "MAYBE"
	if err := a.Validate(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad result accepted: %v", err)
	}
	if _, err := DecodeAck([]byte(`{not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage accepted: %v", err)
	}
}

func TestRegistryValidatesPayloads(t *testing.T) {
	r := DefaultRegistry()
	ok := json.RawMessage(`{"allocationId":"a1","amount":100}`)
	if err := r.Validate(TypeCreditAllocated, ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	bad := json.RawMessage(`{"allocationId":"a1","amount":-5}`)
	if err := r.Validate(TypeCreditAllocated, bad); !errors.Is(err, ErrMalformed) {
		t.Fatalf("negative amount accepted: %v", err)
	}
	if err := r.Validate("never.registered", ok); !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("unknown type error = %v", err)
	}
	if !r.Known(TypeUserSynced) || r.Known("nope") {
		t.Fatal("Known() misreports registrations")
	}
}
