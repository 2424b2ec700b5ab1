// Package client implements the Corkboard sync agent: a per-client mirror
// of server state that applies inbound broadcasts, queues outbound
// operations while disconnected, and drives reconnection with exponential
// backoff followed by a full-board resync.
//
// The transport is abstracted behind the Conn and Dialer interfaces so the
// agent's protocol behavior is testable without a network stack; the
// default WebsocketDialer speaks the real wire protocol.
package client
