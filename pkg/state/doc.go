// Package state implements the authoritative in-memory board store.
//
// All reads and writes pass through the Store. Mutations run to completion
// under the store lock, so no caller ever observes a partially applied
// merge. Conflict policy is last-write-wins at field granularity: a partial
// update merges into the canonical note rather than replacing it wholesale,
// and true same-field races resolve to whichever update the store applies
// last, in arrival order.
//
// Lookup misses are signalled with (value, ok) returns, never errors.
// Errors are reserved for validation rejections.
package state
