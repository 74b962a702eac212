// ABOUTME: Configuration loading and parsing for the chat client
// ABOUTME: Supports YAML files with environment variable expansion, plus an env-only loader

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the endpoints of the message server.
type ServerConfig struct {
	// SocketURL is the websocket endpoint for the persistent connection.
	SocketURL string `yaml:"socket_url" env:"CHATDOCK_SOCKET_URL"`
	// APIBaseURL is the REST base URL for history and conversation lookups.
	APIBaseURL string `yaml:"api_base_url" env:"CHATDOCK_API_BASE_URL"`
}

// AuthConfig holds the client's credentials.
type AuthConfig struct {
	// Token is the JWT presented on the socket dial and REST requests.
	// When empty the client connects as an anonymous guest.
	Token string `yaml:"token" env:"CHATDOCK_TOKEN"`
	// DisplayName overrides the name claim for the userConnect announcement.
	DisplayName string `yaml:"display_name" env:"CHATDOCK_DISPLAY_NAME"`
}

// HistoryConfig holds pagination tuning for the history loader.
type HistoryConfig struct {
	PageSize int `yaml:"page_size" env:"CHATDOCK_HISTORY_PAGE_SIZE"`

	RequestTimeout time.Duration `yaml:"-" env:"CHATDOCK_HISTORY_REQUEST_TIMEOUT"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout" env:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"CHATDOCK_LOG_LEVEL"`
	Format string `yaml:"format" env:"CHATDOCK_LOG_FORMAT"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config from CHATDOCK_* environment variables alone, for
// running without a config file.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.SocketURL == "" {
		return fmt.Errorf("server.socket_url is required")
	}
	if c.Server.APIBaseURL == "" {
		return fmt.Errorf("server.api_base_url is required")
	}
	if c.History.PageSize < 0 {
		return fmt.Errorf("history.page_size must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.History.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.History.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.History.RequestTimeoutRaw, err)
		}
		cfg.History.RequestTimeout = d
	}
	return nil
}
