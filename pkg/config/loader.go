package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPathEnv points at an explicit config file, overriding search paths.
const ConfigPathEnv = "TORIBOT_CONFIG_FILE"

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a configuration loader with the default search paths
// (~/.toribot, then the working directory) and TORIBOT_* env binding.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".toribot"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TORIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{viper: v}
}

// Load loads configuration from file and environment. An empty configPath
// consults TORIBOT_CONFIG_FILE and then the search paths; a missing file is
// created with defaults so a first run leaves a config behind to edit.
func (l *Loader) Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}
	explicit := strings.TrimSpace(configPath) != ""

	resolved, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	if explicit {
		// Keep an explicitly chosen config colocated with its workspace.
		cfg.Workspace = filepath.Join(filepath.Dir(resolved), "workspace")
		l.viper.SetConfigFile(resolved)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound || os.IsNotExist(err) {
			if err := SaveToFile(cfg, resolved); err != nil {
				return nil, fmt.Errorf("creating config file: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, picking the format from the
// extension (json, yaml, toml).
func (l *Loader) Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	format := "json"
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	}

	v := viper.New()
	v.SetConfigType(format)

	v.Set("server", cfg.Server)
	v.Set("backend", cfg.Backend)
	v.Set("cli", cfg.CLI)
	v.Set("models", cfg.Models)
	v.Set("pairing", cfg.Pairing)
	v.Set("sessions", cfg.Sessions)
	v.Set("cron", cfg.Cron)
	v.Set("logging", cfg.Logging)
	v.Set("workspace", cfg.Workspace)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveToFile saves a config without constructing a Loader first.
func SaveToFile(cfg *Config, path string) error {
	return NewLoader().Save(path, cfg)
}

// GetConfigHome returns the default config directory.
func GetConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".toribot"), nil
}

// GetConfigPath returns the path of the file viper actually used.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

func resolveConfigPath(configPath string) (string, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		home, err := GetConfigHome()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, "config.json")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}
