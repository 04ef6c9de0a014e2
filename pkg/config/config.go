// Package config provides configuration management for toribot. It uses
// Viper for loading (JSON/YAML/TOML files, TORIBOT_* environment variables,
// hot-reload) and auto-creates a default config file on first run.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config represents the complete toribot configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Backend  BackendConfig  `mapstructure:"backend" json:"backend"`
	CLI      CLIConfig      `mapstructure:"cli" json:"cli"`
	Models   ModelsConfig   `mapstructure:"models" json:"models"`
	Pairing  PairingConfig  `mapstructure:"pairing" json:"pairing"`
	Sessions SessionsConfig `mapstructure:"sessions" json:"sessions"`
	Cron     CronConfig     `mapstructure:"cron" json:"cron"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`

	// Workspace is the directory holding runtime files (pairing store,
	// logs). Defaults next to the config file.
	Workspace string `mapstructure:"workspace" json:"workspace"`
}

// ServerConfig for the inbound webhook server.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`

	// AllowSenders restricts inbound sender ids. Empty allows everyone.
	AllowSenders []string `mapstructure:"allow_senders" json:"allow_senders"`
}

// BackendConfig for the chat-completion gateway.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"api_key"`
	Model   string `mapstructure:"model" json:"model"`
}

// CLIConfig for the external command-line program commands are forwarded to.
type CLIConfig struct {
	Program   string `mapstructure:"program" json:"program"`
	TimeoutMS int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	Workdir   string `mapstructure:"workdir" json:"workdir"`
	UsePTY    bool   `mapstructure:"use_pty" json:"use_pty"`

	// UnknownMarkers are substrings of CLI output that mark a forwarded
	// token as not being a subcommand at all.
	UnknownMarkers []string `mapstructure:"unknown_markers" json:"unknown_markers"`
}

// ModelsConfig lists model names the /model command accepts.
type ModelsConfig struct {
	Allowed []string `mapstructure:"allowed" json:"allowed"`
}

// PairingConfig for sender verification.
type PairingConfig struct {
	// CodeHash is the bcrypt hash of the pairing code. Set it with
	// `toribot pair set-code`. Empty disables pairing.
	CodeHash string `mapstructure:"code_hash" json:"code_hash"`

	// StoreFile overrides the verified-sender file location.
	StoreFile string `mapstructure:"store_file" json:"store_file"`
}

// SessionsConfig for the in-memory conversation store.
type SessionsConfig struct {
	// Recent is how many trailing messages are replayed to the backend.
	Recent int `mapstructure:"recent" json:"recent"`

	// IdleMinutes is how long a session may sit untouched before the
	// maintenance sweep drops it.
	IdleMinutes int `mapstructure:"idle_minutes" json:"idle_minutes"`
}

// CronConfig for scheduled maintenance.
type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	PruneSchedule string `mapstructure:"prune_schedule" json:"prune_schedule"`
	StatsSchedule string `mapstructure:"stats_schedule" json:"stats_schedule"`
}

// LoggingConfig for the zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	File        string `mapstructure:"file" json:"file"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8787,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8989/v1",
			Model:   "sonnet",
		},
		CLI: CLIConfig{
			Program:        "claude",
			TimeoutMS:      30000,
			UnknownMarkers: []string{"not recognized", "unknown", "is not"},
		},
		Models: ModelsConfig{
			Allowed: []string{"opus", "sonnet", "haiku"},
		},
		Sessions: SessionsConfig{
			Recent:      20,
			IdleMinutes: 720,
		},
		Cron: CronConfig{
			Enabled:       true,
			PruneSchedule: "0 */30 * * * *",
			StatsSchedule: "0 0 * * * *",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Workspace: filepath.Join(home, ".toribot", "workspace"),
	}
}

// WorkspacePath returns the runtime directory, falling back next to the
// default config home when unset.
func (c *Config) WorkspacePath() string {
	if c.Workspace != "" {
		return c.Workspace
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".toribot", "workspace")
}

// PairingStorePath returns the verified-sender file location.
func (c *Config) PairingStorePath() string {
	if c.Pairing.StoreFile != "" {
		return c.Pairing.StoreFile
	}
	return filepath.Join(c.WorkspacePath(), "paired.json")
}

// LogFilePath returns the log file location, or empty for console only.
func (c *Config) LogFilePath() string {
	return c.Logging.File
}

// CLITimeout returns the external-command timeout as a duration.
func (c *Config) CLITimeout() time.Duration {
	if c.CLI.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CLI.TimeoutMS) * time.Millisecond
}

// SessionIdle returns how long a session may idle before pruning.
func (c *Config) SessionIdle() time.Duration {
	if c.Sessions.IdleMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Sessions.IdleMinutes) * time.Minute
}

// RecentWindow returns the history window size.
func (c *Config) RecentWindow() int {
	if c.Sessions.Recent <= 0 {
		return 20
	}
	return c.Sessions.Recent
}

// SenderAllowed reports whether the sender id passes the allow-list.
func (c *Config) SenderAllowed(id string) bool {
	if len(c.Server.AllowSenders) == 0 {
		return true
	}
	for _, allowed := range c.Server.AllowSenders {
		if allowed == id {
			return true
		}
	}
	return false
}

// EnsureWorkspace creates the workspace directory tree.
func (c *Config) EnsureWorkspace() error {
	return os.MkdirAll(c.WorkspacePath(), 0o755)
}
