// Package serverrun assembles and runs the wrapsync server process:
// storage runtime, tracking store and expiry sweeper, publisher, ack
// consumers, workflow orchestrator with its worker pool, and the HTTP
// front end. Run blocks until the context is cancelled and shuts the
// pieces down in dependency order.
package serverrun
