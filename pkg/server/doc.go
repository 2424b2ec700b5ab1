// Package server implements the Corkboard realtime endpoint: WebSocket
// sessions, the sync protocol handler, broadcast fan-out, the HTTP
// side-channel for board listing and creation, and the periodic snapshot
// loop.
//
// All state-changing WebSocket traffic funnels through a single Hub
// goroutine, so mutations are applied in arrival order and no operation
// observes a partially applied change. Broadcast delivery to each session
// goes through a buffered per-session send queue drained by that session's
// write loop; a session that cannot keep up is treated as a slow consumer
// and closed, recovering later through resync.
//
// Board creation authority deliberately lives in the HTTP side-channel:
// the realtime board:create operation only announces a board that already
// exists in the store. Note creation, by contrast, is authoritative over
// the wire. The asymmetry is intentional and load-bearing for clients'
// optimistic board creation.
package server
