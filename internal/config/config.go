// Package config provides configuration management for the server.
package config

import (
	"errors"
	"fmt"
	"time"
)

// FileConfig is the top-level wrapper for the configuration file.
type FileConfig struct {
	Server Config `toml:"server"`
}

// Config holds the server configuration.
type Config struct {
	ListenAddress    string         `toml:"listen_address" validate:"required"`
	CredentialsPath  string         `toml:"credentials_path" validate:"required"`
	Banner           string         `toml:"banner"`
	LogLevel         string         `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Timeouts         TimeoutsConfig `toml:"timeouts"`
	Limits           LimitsConfig   `toml:"limits"`
	Metrics          MetricsConfig  `toml:"metrics"`
	Admin            AdminConfig    `toml:"admin"`
	MaxLoginAttempts int            `toml:"max_login_attempts" validate:"gte=1"`
}

// TimeoutsConfig defines timeout durations.
type TimeoutsConfig struct {
	Command string `toml:"command"`
	Idle    string `toml:"idle"`
}

// LimitsConfig defines resource limits for the server.
type LimitsConfig struct {
	MaxConnections int `toml:"max_connections"`
	MaxPipelineLen int `toml:"max_pipeline_stages"`
}

// MetricsConfig holds configuration for the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// AdminConfig holds configuration for the gRPC health/readiness endpoint.
type AdminConfig struct {
	Enabled     bool   `toml:"enabled"`
	GRPCAddress string `toml:"grpc_address"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		ListenAddress:   "0.0.0.0:1234",
		CredentialsPath: "./credentials.txt",
		Banner:          "Welcome to MyFTP Server!\n",
		LogLevel:        "info",
		Timeouts: TimeoutsConfig{
			Command: "1m",
			Idle:    "30m",
		},
		Limits: LimitsConfig{
			MaxConnections: 100,
			MaxPipelineLen: 16,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9101",
			Path:    "/metrics",
		},
		Admin: AdminConfig{
			Enabled:     false,
			GRPCAddress: ":9102",
		},
		MaxLoginAttempts: 3,
	}
}

// Validate checks required fields, numeric bounds, timeout syntax, and the
// cross-field invariants that struct tag validation cannot express (such
// as a metrics address being required once metrics are enabled).
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen_address is required")
	}
	if c.CredentialsPath == "" {
		return errors.New("credentials_path is required")
	}
	if c.Limits.MaxConnections <= 0 {
		return errors.New("max_connections must be positive")
	}
	if c.Limits.MaxPipelineLen <= 0 || c.Limits.MaxPipelineLen > 16 {
		return errors.New("max_pipeline_stages must be between 1 and 16")
	}
	if c.MaxLoginAttempts <= 0 {
		return errors.New("max_login_attempts must be positive")
	}
	if c.Timeouts.Command != "" {
		if _, err := time.ParseDuration(c.Timeouts.Command); err != nil {
			return fmt.Errorf("invalid command timeout: %w", err)
		}
	}
	if c.Timeouts.Idle != "" {
		if _, err := time.ParseDuration(c.Timeouts.Idle); err != nil {
			return fmt.Errorf("invalid idle timeout: %w", err)
		}
	}
	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}
	if c.Admin.Enabled && c.Admin.GRPCAddress == "" {
		return errors.New("admin grpc_address is required when admin is enabled")
	}
	return nil
}

// CommandTimeout returns the command timeout as a time.Duration.
// Returns 1 minute if not configured or invalid.
func (c *TimeoutsConfig) CommandTimeout() time.Duration {
	if c.Command == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(c.Command)
	if err != nil {
		return time.Minute
	}
	return d
}

// IdleTimeout returns the idle timeout as a time.Duration.
// Returns 30 minutes if not configured or invalid.
func (c *TimeoutsConfig) IdleTimeout() time.Duration {
	if c.Idle == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(c.Idle)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}
