package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks messages that violate the wire contract. Consumers
// log and skip these without halting.
var ErrMalformed = errors.New("event: malformed message")

// Envelope is the canonical cross-application message. Consumers must
// tolerate unknown additional fields and reject envelopes missing any
// required field.
type Envelope struct {
	EventID     string          `json:"eventId"`
	Timestamp   time.Time       `json:"timestamp"`
	EventType   string          `json:"eventType"`
	TenantID    string          `json:"tenantId"`
	EntityType  string          `json:"entityType"`
	EntityID    string          `json:"entityId"`
	Data        json.RawMessage `json:"data"`
	PublishedBy string          `json:"publishedBy"`
}

// Validate checks the required envelope fields.
func (e *Envelope) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: missing eventId", ErrMalformed)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrMalformed)
	case e.EventType == "":
		return fmt.Errorf("%w: missing eventType", ErrMalformed)
	case e.TenantID == "":
		return fmt.Errorf("%w: missing tenantId", ErrMalformed)
	case e.EntityType == "":
		return fmt.Errorf("%w: missing entityType", ErrMalformed)
	case e.EntityID == "":
		return fmt.Errorf("%w: missing entityId", ErrMalformed)
	case e.PublishedBy == "":
		return fmt.Errorf("%w: missing publishedBy", ErrMalformed)
	}
	return nil
}

// DecodeEnvelope parses and validates an envelope from wire bytes.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Encode serializes the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
