// Package taskqueue is a Pebble-backed task queue with at-least-once
// delivery. Tasks become available immediately or after a delay, are
// dequeued under a time-bounded lease, and return to availability when
// the lease expires without a Complete. Availability is bounded:
// Enqueue blocks while the ready backlog is at the configured cap.
package taskqueue
