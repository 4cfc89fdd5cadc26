package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// AckResult is the downstream verdict for one delivered event.
type AckResult string

const (
	AckOK    AckResult = "OK"
	AckError AckResult = "ERROR"
)

// Ack correlates to exactly one Envelope via EventID.
type Ack struct {
	EventID             string    `json:"eventId"`
	TenantID            string    `json:"tenantId"`
	ConsumerApplication string    `json:"consumerApplication"`
	Result              AckResult `json:"result"`
	ErrorDetail         string    `json:"errorDetail,omitempty"`
	AckTimestamp        time.Time `json:"ackTimestamp"`
}

// Validate checks the required ack fields.
func (a *Ack) Validate() error {
	switch {
	case a.EventID == "":
		return fmt.Errorf("%w: missing eventId", ErrMalformed)
	case a.TenantID == "":
		return fmt.Errorf("%w: missing tenantId", ErrMalformed)
	case a.ConsumerApplication == "":
		return fmt.Errorf("%w: missing consumerApplication", ErrMalformed)
	case a.AckTimestamp.IsZero():
		return fmt.Errorf("%w: missing ackTimestamp", ErrMalformed)
	}
	if a.Result != AckOK && a.Result != AckError {
		return fmt.Errorf("%w: result %q", ErrMalformed, a.Result)
	}
	return nil
}

// DecodeAck parses and validates an ack from wire bytes.
func DecodeAck(b []byte) (Ack, error) {
	var a Ack
	if err := json.Unmarshal(b, &a); err != nil {
		return Ack{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := a.Validate(); err != nil {
		return Ack{}, err
	}
	return a, nil
}
