// Package event defines the wire shapes crossing application boundaries:
// the canonical event envelope, the acknowledgment message, and the
// registry mapping event types to payload schemas. Payloads stay opaque to
// the transport and tracking layers; typed decoding happens here, at
// consumption time.
package event
