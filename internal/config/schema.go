// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for coffee.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/internal/telemetry"
	"github.com/flemzord/coffee/internal/tool"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Client configures the client core: backend connection, realtime
	// channel and optimistic send tuning.
	Client ClientConfig `yaml:"client"`

	// Tools configures the agent tool dispatcher.
	Tools ToolsConfig `yaml:"tools"`

	Telemetry telemetry.Config `yaml:"telemetry"`

	// Audit configures the JSONL audit log.
	Audit AuditConfig `yaml:"audit"`

	Reload ReloadConfig `yaml:"reload"`

	// Modules maps server module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "store.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// ClientConfig configures the client side.
type ClientConfig struct {
	// BackendURL is the API root, e.g. https://api.example.com.
	BackendURL string `yaml:"backend_url"`

	// RealtimeURL is the push endpoint. Empty derives it from BackendURL
	// (http→ws, path /ws/messages).
	RealtimeURL string `yaml:"realtime_url"`

	// Token is the bearer credential sent to the backend.
	Token string `yaml:"token"`

	// DataDir holds the session file and local state. Empty uses the
	// platform default.
	DataDir string `yaml:"data_dir"`

	SendTimeout time.Duration `yaml:"send_timeout"`
	DedupWindow time.Duration `yaml:"dedup_window"`

	Resubscribe BackoffConfig `yaml:"resubscribe"`
}

// BackoffConfig tunes realtime resubscription.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	StaleAfter int           `yaml:"stale_after"`
}

// ToolsConfig configures the dispatcher.
type ToolsConfig struct {
	Policy     tool.Policy              `yaml:"policy"`
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`
	// Timeout bounds a single tool execution. Zero uses the dispatcher default.
	Timeout time.Duration `yaml:"timeout"`
}

// AuditConfig configures the audit log.
type AuditConfig struct {
	// Path of the JSONL file. Empty writes to <data_dir>/audit.jsonl.
	Path string `yaml:"path"`
	// Disabled turns audit logging off.
	Disabled bool `yaml:"disabled"`
}

// ReloadConfig controls live configuration reload for `coffee serve`.
type ReloadConfig struct {
	Disabled bool `yaml:"disabled"`
	// PollInterval is how often the file is checked. Zero means 5s.
	PollInterval time.Duration `yaml:"poll_interval"`
}
