// Package config provides configuration loading for provisioning servers:
// YAML files with environment variable expansion, plus startup credential
// checks.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration for one server instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Retry     RetryConfig     `yaml:"retry"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Executor  ExecutorConfig  `yaml:"executor"`
}

// ServerConfig names the server and selects its transport.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// HTTPAddr enables the HTTP transport when non-empty; otherwise the
	// server speaks the line protocol over stdio.
	HTTPAddr string `yaml:"http_addr"`
	// CredentialEnv lists the environment variables checked, in order,
	// for the provider bearer credential.
	CredentialEnv []string `yaml:"credential_env"`
}

// LogConfig controls the diagnostic stream.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RetryConfig is the default retry policy for vendor calls.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	RetryableStatuses []int         `yaml:"retryable_statuses"`
}

// ReadinessConfig is the default readiness polling configuration.
type ReadinessConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// ExecutorConfig bounds concurrent handler execution.
type ExecutorConfig struct {
	MaxConcurrent           int           `yaml:"max_concurrent"`
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `yaml:"circuit_breaker_timeout"`
	DefaultTimeout          time.Duration `yaml:"default_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:    "provisiond",
			Version: "0.1.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      500 * time.Millisecond,
			RetryableStatuses: []int{429, 500, 502, 503, 504},
		},
		Readiness: ReadinessConfig{
			PollInterval: 2 * time.Second,
			MaxWait:      5 * time.Minute,
		},
		Executor: ExecutorConfig{
			MaxConcurrent:           10,
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   30 * time.Second,
			DefaultTimeout:          60 * time.Second,
		},
	}
}

// Load reads a YAML configuration file, expands ${VAR} references, and
// overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	expander := &envExpander{}
	expanded, err := expander.Expand(string(raw))
	if err != nil {
		return cfg, fmt.Errorf("expand config %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
