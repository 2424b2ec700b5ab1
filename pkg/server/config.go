package server

import (
	"net/http"
	"time"
)

// Config holds server tunables. Zero values fall back to defaults.
type Config struct {
	// Address is the listen address (host:port).
	Address string

	// ReadTimeout bounds how long a connection may stay silent. Pongs
	// refresh the deadline, so it must exceed HeartbeatInterval.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single outbound write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the server ping cadence.
	HeartbeatInterval time.Duration

	// EditingTTL clears an editing presence marker not renewed within
	// this window. Guards against a stuck "being edited" indicator when
	// an editing session dies without editing-end.
	EditingTTL time.Duration

	// SaveInterval drives the periodic snapshot loop.
	SaveInterval time.Duration

	// MaxSessions bounds concurrent connections. Zero takes the default;
	// a negative value disables the limit.
	MaxSessions int

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the WebSocket origin header.
	CheckOrigin func(r *http.Request) bool

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8090",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		EditingTTL:        90 * time.Second,
		SaveInterval:      5 * time.Second,
		MaxSessions:       1000,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(r *http.Request) bool { return true },
		ShutdownTimeout:   10 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.EditingTTL == 0 {
		c.EditingTTL = d.EditingTTL
	}
	if c.SaveInterval == 0 {
		c.SaveInterval = d.SaveInterval
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = d.MaxSessions
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}
