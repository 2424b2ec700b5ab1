// Package config loads and validates the corkboard.json configuration.
//
// Sections map to major subsystems: Server (HTTP/WebSocket endpoint),
// Persistence (snapshot store), Sync (realtime protocol tunables), and
// Client (sync agent reconnection behavior). Durations are expressed in
// milliseconds in the file; accessors convert to time.Duration.
package config
