// Package pebblestore wraps a Pebble instance with the durability policy
// and batch helpers shared by the stream logs, tracking store, task queue
// and workflow store. All keyspaces live in the single database; callers
// own their key layout.
package pebblestore
