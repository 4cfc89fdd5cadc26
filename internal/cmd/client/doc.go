// Package client contains Cobra CLI commands that talk to a running
// wrapsync server over its JSON HTTP API.
package client
