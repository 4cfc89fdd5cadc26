package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEventType is returned when no schema is registered for a type.
var ErrUnknownEventType = errors.New("event: unknown event type")

// PayloadValidator decodes and checks a type-specific payload.
type PayloadValidator func(data json.RawMessage) error

// Registry maps event types to payload schemas. The transport trusts
// nothing about payloads; callers validate here when they consume.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]PayloadValidator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: map[string]PayloadValidator{}}
}

// Register installs the validator for eventType, replacing any previous one.
func (r *Registry) Register(eventType string, v PayloadValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[eventType] = v
}

// Known reports whether a schema is registered for eventType.
func (r *Registry) Known(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.validators[eventType]
	return ok
}

// Validate checks an envelope's payload against its registered schema.
func (r *Registry) Validate(eventType string, data json.RawMessage) error {
	r.mu.RLock()
	v, ok := r.validators[eventType]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	return v(data)
}
