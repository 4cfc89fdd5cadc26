// Package workflow runs durable multi-step business operations.
//
// A workflow definition is a deterministic function that requests
// activity executions through its Context. Every activity invocation is
// persisted into the execution's ordered history before the definition
// observes its outcome, so re-running the definition after a process
// restart replays recorded steps from history and resumes live
// execution exactly at the first step without a terminal outcome.
//
// Activities execute on the worker pool via the task queue, which gives
// at-least-once semantics; activity implementations must be idempotent.
// Retryable failures are redelivered with exponential backoff up to the
// configured attempt budget, fatal failures terminate the workflow
// immediately, and cancellation is cooperative between activities.
package workflow
