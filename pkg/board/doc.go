// Package board defines the Corkboard data model: boards, notes, and the
// validation rules every mutation must satisfy.
//
// A Board is the unit of sharing and subscription scope; it owns an ordered
// list of Notes. A Note is a positioned, stylable content unit whose version
// counter increases by exactly one on every successful mutation. Version is
// a change-detection signal, not an ordering or merge arbitrator.
//
// All server-side state lives behind the state.Store; this package only
// carries the shapes, the invariants, and deep copying.
package board
