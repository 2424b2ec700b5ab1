// Package errors provides structured errors for Corkboard.
//
// Each error carries a category, an optional registered code, and an
// optional wrapped cause. Categories separate the failure domains that
// matter operationally:
//   - validation: a payload or merge result violates a model invariant
//   - protocol: a wire envelope or payload could not be interpreted
//   - persistence: the snapshot store failed after retry exhaustion
//   - transport: a connection-level failure driving reconnection
//   - config: configuration file problems
//
// "Not found" is deliberately not an error category. Lookups signal
// absence with a (value, ok) return; errors are reserved for conditions
// the caller cannot express as an absence.
package errors
