// Package config handles configuration loading and validation for duckwatch.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Poll     Poll     `yaml:"poll"`
	Realtime Realtime `yaml:"realtime"`
	Rules    []Rule   `yaml:"rules"`
	DataDir  string   `yaml:"-"` // set by caller, not from config file
}

// Server points at the orchestrator.
type Server struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Poll holds the per-view refresh cadences. Each observing view owns its
// own timer; these only set the intervals.
type Poll struct {
	List   time.Duration `yaml:"list"`
	Detail time.Duration `yaml:"detail"`
	Fleet  time.Duration `yaml:"fleet"`
}

// Realtime holds the push channel timings. The defaults match the
// orchestrator's expectations; overrides exist for testing.
type Realtime struct {
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

// Rule supplies submit defaults for repositories whose URL matches a glob
// pattern. The first matching rule wins.
type Rule struct {
	Pattern       string `yaml:"pattern"`
	Branch        string `yaml:"branch"`
	Mode          string `yaml:"mode"`
	Priority      string `yaml:"priority"`
	MaxIterations int    `yaml:"max_iterations"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: Server{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 30 * time.Second,
		},
		Poll: Poll{
			List:   5 * time.Second,
			Detail: 2 * time.Second,
			Fleet:  10 * time.Second,
		},
		Realtime: Realtime{
			ReconnectDelay:    3 * time.Second,
			KeepaliveInterval: 30 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the data
// directory. If configPath is empty or doesn't exist, returns defaults
// with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaults.Server.RequestTimeout
	}
	if c.Poll.List == 0 {
		c.Poll.List = defaults.Poll.List
	}
	if c.Poll.Detail == 0 {
		c.Poll.Detail = defaults.Poll.Detail
	}
	if c.Poll.Fleet == 0 {
		c.Poll.Fleet = defaults.Poll.Fleet
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = defaults.Realtime.ReconnectDelay
	}
	if c.Realtime.KeepaliveInterval == 0 {
		c.Realtime.KeepaliveInterval = defaults.Realtime.KeepaliveInterval
	}
}

// RuleFor returns the first rule whose pattern matches repoURL.
func (c *Config) RuleFor(repoURL string) (Rule, bool) {
	for _, rule := range c.Rules {
		ok, err := doublestar.Match(rule.Pattern, repoURL)
		if err != nil {
			continue // invalid patterns are rejected by Validate
		}
		if ok {
			return rule, true
		}
	}
	return Rule{}, false
}
