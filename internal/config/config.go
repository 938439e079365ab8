// Package config loads the ledger indexer's configuration from a YAML file
// on disk, layered under a small set of environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory the store's database file lives in when
	// DSN is not set.
	DataDir string `yaml:"data_dir"`

	// DSN is the store connection string. Always overridden by
	// LEDGER_STORE_DSN when that variable is set.
	DSN string `yaml:"dsn"`
}

// HTTPConfig holds HTTP transport settings.
type HTTPConfig struct {
	// Addr is the host:port the server listens on.
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// Config holds all configuration for the ledger indexer.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// Environment variable names. LEDGER_STORE_DSN overrides the store
// connection string; the rest are optional overrides.
const (
	EnvStoreDSN = "LEDGER_STORE_DSN"
	EnvHTTPAddr = "LEDGER_HTTP_ADDR"
	EnvLogLevel = "LEDGER_LOG_LEVEL"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "~/.ledger-indexer",
		},
		HTTP: HTTPConfig{
			Addr: "0.0.0.0:3000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from a YAML file under dataDir, creating
// one with default values on first run, then applies environment variable
// overrides (env wins over file wins over default).
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	var cfg *Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		cfg = DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv(EnvStoreDSN); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if addr := os.Getenv(EnvHTTPAddr); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Ledger indexer configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the full path to the config file for the given data
// directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
