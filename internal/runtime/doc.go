// Package runtime wires storage and configuration into a single-node
// sync core instance. It exposes Open/Close, a basic health check, and
// cached accessors for stream logs and task queues so that concurrent
// components share one instance per key.
package runtime
