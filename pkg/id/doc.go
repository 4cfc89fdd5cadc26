// Package id generates 128-bit, lexicographically sortable record
// identifiers used by the stream transport and task queue. The layout is
// [8 bytes unix-ms][8 bytes per-process sequence], so byte order equals
// generation order within a process.
package id
