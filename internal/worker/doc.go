// Package worker runs a bounded pool of goroutines draining a task
// queue. Payloads stay opaque: the installed handler decides what a
// task means. A handler error leaves the lease to expire so the task
// redelivers; a nil return completes it.
package worker
