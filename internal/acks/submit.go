package acks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/stream"
	"github.com/Cdineshreddy12/Wrapper-sub015/pkg/id"
)

// SystemNamespace scopes transport-internal streams such as ack logs.
// It deliberately cannot collide with tenant ids used by applications.
const SystemNamespace = "_system"

// ConsumerGroup is the cursor group name used by ack consumers.
const ConsumerGroup = "tracker"

// Submitter appends acknowledgment messages to the submitting
// application's ack log.
type Submitter struct {
	rt  *runtime.Runtime
	gen *id.Generator
}

// NewSubmitter returns a Submitter over rt.
func NewSubmitter(rt *runtime.Runtime) *Submitter {
	return &Submitter{rt: rt, gen: id.NewGenerator()}
}

// Submit validates ack and appends it to the ack log for its
// consumerApplication. The tracking transition happens asynchronously
// when the application's Consumer reads the entry.
func (s *Submitter) Submit(ctx context.Context, ack event.Ack) error {
	if err := ack.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(&ack)
	if err != nil {
		return err
	}
	log, err := s.rt.Log(SystemNamespace, stream.AckStreamKey(ack.ConsumerApplication))
	if err != nil {
		return err
	}
	header := stream.EncodeHeader(s.gen.Next(), time.Now().UnixMilli())
	_, err = log.Append(ctx, []stream.AppendRecord{{Header: header, Payload: payload}})
	return err
}
