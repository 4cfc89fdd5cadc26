// Package tracking is the system of record for event delivery state. One
// record exists per published eventId; its status moves PUBLISHED ->
// ACKNOWLEDGED | FAILED | EXPIRED and never leaves a terminal state.
// Transitions for a given eventId are serialized through striped locks so
// a late, stale acknowledgment can never revert a terminal record.
//
// The package also computes per-tenant sync health over a rolling window
// and serves CEL-filtered historical searches for operational tooling.
package tracking
