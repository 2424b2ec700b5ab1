// Package protocol defines the Corkboard wire protocol.
//
// Every message travels as a JSON envelope:
//
//	{"type": "note:update", "payload": {...}, "timestamp": 1712000000000, "sessionId": "01H..."}
//
// The payload is a tagged union keyed by the envelope type. DecodePayload
// resolves the union with an exhaustive switch, so every operation type is
// either handled or rejected as unknown; there is no dynamically typed
// passthrough.
//
// Inbound operations: note:create, note:update, note:delete, note:move,
// note:editing:start, note:editing:end, board:join, board:leave,
// board:create, board:delete, board:rename, sync:request.
//
// Outbound events: note:created, note:updated, note:deleted, note:moved,
// note:editing, board:created, board:deleted, board:renamed,
// sync:response, session:welcome, error.
package protocol
