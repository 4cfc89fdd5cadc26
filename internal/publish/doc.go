// Package publish turns domain changes into sync events. A publish
// appends the canonical envelope to the target application's stream and
// writes the PUBLISHED tracking record. The stream append is the source
// of truth; a failed tracking write surfaces a retriable error and the
// caller repeats the whole operation (record creation is idempotent).
package publish
