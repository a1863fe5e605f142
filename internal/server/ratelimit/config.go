package ratelimit

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path; a trailing "/" matches by prefix
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration. It is read from RATE_LIMIT_* variables.
type Config struct {
	Enabled         bool          `envconfig:"ENABLED" default:"true"`
	DefaultLimit    int           `envconfig:"DEFAULT_LIMIT" default:"1000"`
	DefaultWindow   time.Duration `envconfig:"DEFAULT_WINDOW" default:"1m"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
	Whitelist       []string      `envconfig:"WHITELIST"`
	Blacklist       []string      `envconfig:"BLACKLIST"`

	Endpoints []EndpointConfig `ignored:"true"`
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("RATE_LIMIT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read rate limit config: %w", err)
	}
	cfg.Endpoints = DefaultEndpointConfigs()
	return &cfg, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Each run makes a chat completion and an embedding call
		{Path: "/candidates/process", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/candidates/process/stream", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		// Standalone embedding
		{Path: "/candidates/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, item := range list {
		if item != "" {
			set[item] = true
		}
	}
	return set
}
