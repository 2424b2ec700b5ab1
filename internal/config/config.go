package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corkboard-dev/corkboard/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "corkboard.json"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8090"

	// DefaultDataDir is the default snapshot directory.
	DefaultDataDir = "data"

	// DefaultSaveIntervalMs drives the periodic snapshot loop.
	DefaultSaveIntervalMs = 5000

	// DefaultHeartbeatMs is the WebSocket ping interval.
	DefaultHeartbeatMs = 25000

	// DefaultEditingTTLMs clears a stuck editing presence marker.
	DefaultEditingTTLMs = 90000

	// DefaultMaxSessions bounds concurrent connections. Zero disables
	// the limit.
	DefaultMaxSessions = 1000

	// DefaultBackoffBaseMs and DefaultBackoffMaxMs bound the client
	// reconnection backoff.
	DefaultBackoffBaseMs = 500
	DefaultBackoffMaxMs  = 30000

	// DefaultDedupWindowMs is the client-side duplicate-create window.
	DefaultDedupWindowMs = 750
)

// Config represents the complete corkboard.json configuration.
type Config struct {
	// Name is the deployment name, used as the metrics namespace suffix.
	Name string `json:"name,omitempty"`

	// Server contains HTTP/WebSocket endpoint configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Persistence contains snapshot store configuration.
	Persistence PersistenceConfig `json:"persistence,omitempty"`

	// Sync contains realtime protocol tunables.
	Sync SyncConfig `json:"sync,omitempty"`

	// Client contains sync agent configuration.
	Client ClientConfig `json:"client,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// ServerConfig configures the HTTP/WebSocket endpoint.
type ServerConfig struct {
	// Address is the listen address (host:port).
	Address string `json:"address,omitempty"`

	// ReadTimeoutMs and WriteTimeoutMs bound socket I/O.
	ReadTimeoutMs  int `json:"readTimeoutMs,omitempty"`
	WriteTimeoutMs int `json:"writeTimeoutMs,omitempty"`

	// ShutdownTimeoutMs bounds graceful shutdown.
	ShutdownTimeoutMs int `json:"shutdownTimeoutMs,omitempty"`
}

// PersistenceConfig configures the snapshot store.
type PersistenceConfig struct {
	// Backend is "file" (default) or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the snapshot directory for the file backend.
	Dir string `json:"dir,omitempty"`

	// Bucket and Prefix configure the s3 backend.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`

	// SaveIntervalMs drives the periodic snapshot loop.
	SaveIntervalMs int `json:"saveIntervalMs,omitempty"`

	// MaxRetries and RetryBackoffMs configure store retry behavior.
	MaxRetries     int `json:"maxRetries,omitempty"`
	RetryBackoffMs int `json:"retryBackoffMs,omitempty"`
}

// SyncConfig configures the realtime protocol.
type SyncConfig struct {
	// HeartbeatMs is the WebSocket ping interval.
	HeartbeatMs int `json:"heartbeatMs,omitempty"`

	// EditingTTLMs clears a stuck editing presence marker after this
	// long without renewal.
	EditingTTLMs int `json:"editingTtlMs,omitempty"`

	// MaxSessions bounds concurrent connections (0 = unlimited).
	MaxSessions int `json:"maxSessions,omitempty"`
}

// ClientConfig configures the client sync agent.
type ClientConfig struct {
	// BackoffBaseMs is the initial reconnect delay; it doubles per
	// attempt up to BackoffMaxMs.
	BackoffBaseMs int `json:"backoffBaseMs,omitempty"`
	BackoffMaxMs  int `json:"backoffMaxMs,omitempty"`

	// DedupWindowMs suppresses duplicate create-note requests at the same
	// board and position within this window.
	DedupWindowMs int `json:"dedupWindowMs,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads corkboard.json from the current directory, falling back to
// defaults when the file does not exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigFileName)
}

// LoadFrom reads the configuration from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.New("E501").Wrap(err)
	}

	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.New("E501").Wrap(err)
	}
	c.configPath = path
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration to its path (or ConfigFileName).
func (c *Config) Save() error {
	path := c.configPath
	if path == "" {
		path = ConfigFileName
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E501").Wrap(err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.New("E501").Wrap(err)
	}
	return nil
}

// Validate checks value ranges. Warnings do not fail validation; use
// Warnings for advisory findings.
func (c *Config) Validate() error {
	if c.Persistence.Backend != "" && c.Persistence.Backend != "file" && c.Persistence.Backend != "s3" {
		return errors.New("E501").WithDetail("unknown persistence backend %q", c.Persistence.Backend)
	}
	if c.Persistence.Backend == "s3" && c.Persistence.Bucket == "" {
		return errors.New("E501").WithDetail("s3 backend requires a bucket")
	}
	if c.Sync.MaxSessions < 0 {
		return errors.New("E501").WithDetail("maxSessions must not be negative")
	}
	if c.Client.BackoffBaseMs > c.Client.BackoffMaxMs {
		return errors.New("E501").WithDetail("backoffBaseMs exceeds backoffMaxMs")
	}
	return nil
}

// Warnings returns advisory configuration findings.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Persistence.SaveIntervalMs < 1000 {
		warnings = append(warnings,
			fmt.Sprintf("saveIntervalMs=%d is aggressive; snapshots serialize the full board collection", c.Persistence.SaveIntervalMs))
	}
	if c.Sync.EditingTTLMs < 5000 {
		warnings = append(warnings,
			"editingTtlMs under 5s will clear active editing indicators during normal typing pauses")
	}
	return warnings
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeoutMs == 0 {
		c.Server.ReadTimeoutMs = 60000
	}
	if c.Server.WriteTimeoutMs == 0 {
		c.Server.WriteTimeoutMs = 10000
	}
	if c.Server.ShutdownTimeoutMs == 0 {
		c.Server.ShutdownTimeoutMs = 10000
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = "file"
	}
	if c.Persistence.Dir == "" {
		c.Persistence.Dir = DefaultDataDir
	}
	if c.Persistence.SaveIntervalMs == 0 {
		c.Persistence.SaveIntervalMs = DefaultSaveIntervalMs
	}
	if c.Persistence.MaxRetries == 0 {
		c.Persistence.MaxRetries = 3
	}
	if c.Persistence.RetryBackoffMs == 0 {
		c.Persistence.RetryBackoffMs = 250
	}
	if c.Sync.HeartbeatMs == 0 {
		c.Sync.HeartbeatMs = DefaultHeartbeatMs
	}
	if c.Sync.EditingTTLMs == 0 {
		c.Sync.EditingTTLMs = DefaultEditingTTLMs
	}
	if c.Sync.MaxSessions == 0 {
		c.Sync.MaxSessions = DefaultMaxSessions
	}
	if c.Client.BackoffBaseMs == 0 {
		c.Client.BackoffBaseMs = DefaultBackoffBaseMs
	}
	if c.Client.BackoffMaxMs == 0 {
		c.Client.BackoffMaxMs = DefaultBackoffMaxMs
	}
	if c.Client.DedupWindowMs == 0 {
		c.Client.DedupWindowMs = DefaultDedupWindowMs
	}
}

// Path returns the file path the config was loaded from, or empty for a
// default config.
func (c *Config) Path() string {
	if c.configPath == "" {
		return ""
	}
	abs, err := filepath.Abs(c.configPath)
	if err != nil {
		return c.configPath
	}
	return abs
}

// Duration accessors.

func (c *ServerConfig) ReadTimeout() time.Duration  { return ms(c.ReadTimeoutMs) }
func (c *ServerConfig) WriteTimeout() time.Duration { return ms(c.WriteTimeoutMs) }
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return ms(c.ShutdownTimeoutMs)
}

func (c *PersistenceConfig) SaveInterval() time.Duration { return ms(c.SaveIntervalMs) }
func (c *PersistenceConfig) RetryBackoff() time.Duration { return ms(c.RetryBackoffMs) }

func (c *SyncConfig) Heartbeat() time.Duration  { return ms(c.HeartbeatMs) }
func (c *SyncConfig) EditingTTL() time.Duration { return ms(c.EditingTTLMs) }

func (c *ClientConfig) BackoffBase() time.Duration { return ms(c.BackoffBaseMs) }
func (c *ClientConfig) BackoffMax() time.Duration  { return ms(c.BackoffMaxMs) }
func (c *ClientConfig) DedupWindow() time.Duration { return ms(c.DedupWindowMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
