// Package config loads process configuration for the mcpd broker.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the mcpd broker.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Chat       ProviderConfig   `toml:"chat"`
	Completion ProviderConfig   `toml:"completion"`
	Prometheus PrometheusConfig `toml:"prometheus"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	OutboundTimeout string `toml:"outbound_timeout"` // duration string, e.g. "30s"
}

// ProviderConfig holds connection details for an LLM provider.
type ProviderConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// PrometheusConfig holds the upstream Prometheus server to proxy to.
type PrometheusConfig struct {
	URL string `toml:"url"`
}

// FilesystemConfig holds sandbox roots for the filesystem gateway.
type FilesystemConfig struct {
	AllowedDirs []string `toml:"allowed_dirs"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// OutboundTimeout parses Server.OutboundTimeout, defaulting to 30s on error
// or when unset.
func (c *Config) OutboundTimeout() time.Duration {
	if c.Server.OutboundTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Server.OutboundTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (cmd/mcpd passes MCPD_CONFIG)
//  2. MCPD_CONFIG environment variable
//  3. ./mcpd.toml (current directory)
//  4. ~/.config/mcpd/mcpd.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			OutboundTimeout: "30s",
		},
		Prometheus: PrometheusConfig{
			URL: "http://localhost:9090",
		},
		Filesystem: FilesystemConfig{
			AllowedDirs: nil, // resolved to cwd in Load, after applyEnv, if still empty
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if len(cfg.Filesystem.AllowedDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving default sandbox root: %w", err)
		}
		cfg.Filesystem.AllowedDirs = []string{wd}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("MCPD_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("mcpd.toml"); err == nil {
		return "mcpd.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/mcpd/mcpd.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("MCPD_LISTEN_ADDR", &c.Server.ListenAddr)
	envOverride("MCPD_OUTBOUND_TIMEOUT", &c.Server.OutboundTimeout)

	envOverride("MCPD_CHAT_BASE_URL", &c.Chat.BaseURL)
	envOverride("MCPD_CHAT_API_KEY", &c.Chat.APIKey)

	envOverride("MCPD_COMPLETION_BASE_URL", &c.Completion.BaseURL)
	envOverride("MCPD_COMPLETION_API_KEY", &c.Completion.APIKey)

	envOverride("MCPD_PROMETHEUS_URL", &c.Prometheus.URL)

	envOverride("MCPD_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("MCPD_ALLOWED_DIRS"); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, ",") {
			d = strings.TrimSpace(d)
			if d != "" {
				dirs = append(dirs, d)
			}
		}
		if len(dirs) > 0 {
			c.Filesystem.AllowedDirs = dirs
		}
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if len(c.Filesystem.AllowedDirs) == 0 {
		return fmt.Errorf("filesystem.allowed_dirs must contain at least one root")
	}
	if _, err := time.ParseDuration(c.Server.OutboundTimeout); err != nil {
		return fmt.Errorf("invalid server.outbound_timeout %q: %w", c.Server.OutboundTimeout, err)
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
