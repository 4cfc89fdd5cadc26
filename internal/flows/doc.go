// Package flows holds the wrapper platform's registered workflow
// definitions and their activities: organization provisioning, credit
// allocation and user synchronization. Activities persist domain
// entities, publish sync events toward the configured downstream
// applications, and stay idempotent through per-step markers so
// at-least-once task delivery cannot double-apply a side effect.
package flows
