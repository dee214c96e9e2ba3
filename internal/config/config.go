// Package config loads the caldav-events command configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvServerURL   = "CALDAV_SERVER_URL"
	EnvUsername    = "CALDAV_USERNAME"
	EnvPassword    = "CALDAV_PASSWORD"
	EnvConcurrency = "CALDAV_CONCURRENCY"
)

// Config represents the command configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains the CalDAV account settings
type ServerConfig struct {
	URL              string        `yaml:"url"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	Timeout          time.Duration `yaml:"timeout"`
	ServiceDiscovery bool          `yaml:"serviceDiscovery"`
}

// QueryConfig contains event query settings
type QueryConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// LoadFromFile loads configuration from a YAML file, then applies defaults,
// environment overrides and validation in that order. An empty path skips
// the file.
func LoadFromFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.setDefaults()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Query.Concurrency == 0 {
		c.Query.Concurrency = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerURL); ok {
		c.Server.URL = v
	}
	if v, ok := lookup(EnvUsername); ok {
		c.Server.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Server.Password = v
	}
	if v, ok := lookup(EnvConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvConcurrency, v, err)
		}
		c.Query.Concurrency = n
	}
	return nil
}

// Validate checks that the account settings are usable.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("server.url %q must be an absolute http or https URL", c.Server.URL)
	}
	if c.Server.Username == "" || c.Server.Password == "" {
		return fmt.Errorf("server.username and server.password are required")
	}
	if c.Query.Concurrency < 1 {
		return fmt.Errorf("query.concurrency must be at least 1, got %d", c.Query.Concurrency)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
