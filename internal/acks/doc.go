// Package acks moves acknowledgment messages from the per-application
// ack logs into the tracking store. One Consumer runs per downstream
// application; its durable cursor advances only after the tracking
// update commits, so a crash re-reads and re-applies the same acks
// (terminal-state records make re-application a no-op).
//
// Malformed acks and acks for unknown eventIds are logged, counted and
// skipped. A failing tracking store blocks the loop with local backoff
// instead of advancing past an unprocessed message.
package acks
