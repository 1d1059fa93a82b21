// Package config provides configuration management for keyscout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	// DefaultListenAddr is the default address of the network server.
	DefaultListenAddr = ":37790"

	// DefaultMaxBodyBytes caps HTTP request bodies and websocket messages.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultAgentName identifies the service in ping and health responses.
	DefaultAgentName = "keyword-research-agent"
)

// Settings keys. Environment variables with the same names override the file.
const (
	KeyListenAddr   = "KEYSCOUT_LISTEN_ADDR"
	KeyPatternsFile = "KEYSCOUT_PATTERNS_FILE"
	KeyTrendSeed    = "KEYSCOUT_TREND_SEED"
	KeyMaxBodyBytes = "KEYSCOUT_MAX_BODY_BYTES"
	KeyLogLevel     = "KEYSCOUT_LOG_LEVEL"
	KeyAgentName    = "KEYSCOUT_AGENT_NAME"
	KeyOTLPEndpoint = "KEYSCOUT_OTLP_ENDPOINT"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr   string `json:"listen_addr"`
	PatternsFile string `json:"patterns_file"` // YAML pattern tables; empty uses the built-in tables
	LogLevel     string `json:"log_level"`
	AgentName    string `json:"agent_name"`
	MaxBodyBytes int64  `json:"max_body_bytes"`
	OTLPEndpoint string `json:"otlp_endpoint"` // host:port of an OTLP/gRPC collector; empty disables export
	TrendSeed    uint64 `json:"trend_seed"`    // 0 draws trends from the process-wide source
}

// DataDir returns the data directory path (~/.keyscout).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".keyscout")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureSettings creates a default settings file at path if none exists.
func EnsureSettings(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	defaultSettings := `{
  "KEYSCOUT_LISTEN_ADDR": ":37790",
  "KEYSCOUT_LOG_LEVEL": "info",
  "KEYSCOUT_MAX_BODY_BYTES": 1048576
}
`
	return os.WriteFile(path, []byte(defaultSettings), 0600)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ListenAddr:   DefaultListenAddr,
		LogLevel:     DefaultLogLevel,
		AgentName:    DefaultAgentName,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// LoadFile loads configuration from path, merging it over the defaults and
// applying environment overrides. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := cfg.applySettings(data); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySettings(data []byte) error {
	// Map-based so unknown keys are ignored.
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return err
	}

	if v, ok := settings[KeyListenAddr].(string); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := settings[KeyPatternsFile].(string); ok {
		c.PatternsFile = v
	}
	if v, ok := settings[KeyTrendSeed].(float64); ok && v >= 0 {
		c.TrendSeed = uint64(v)
	}
	if v, ok := settings[KeyMaxBodyBytes].(float64); ok && v > 0 {
		c.MaxBodyBytes = int64(v)
	}
	if v, ok := settings[KeyLogLevel].(string); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := settings[KeyAgentName].(string); ok && v != "" {
		c.AgentName = v
	}
	if v, ok := settings[KeyOTLPEndpoint].(string); ok {
		c.OTLPEndpoint = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(KeyListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(KeyPatternsFile); v != "" {
		c.PatternsFile = v
	}
	if v := os.Getenv(KeyTrendSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyTrendSeed, err)
		}
		c.TrendSeed = seed
	}
	if v := os.Getenv(KeyMaxBodyBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: invalid size %q", KeyMaxBodyBytes, v)
		}
		c.MaxBodyBytes = n
	}
	if v := os.Getenv(KeyLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(KeyAgentName); v != "" {
		c.AgentName = v
	}
	if v := os.Getenv(KeyOTLPEndpoint); v != "" {
		c.OTLPEndpoint = v
	}
	return nil
}
