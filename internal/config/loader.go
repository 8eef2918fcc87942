package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	validator "github.com/go-playground/validator/v10"
)

// Flags holds command-line flag values that override the config file.
type Flags struct {
	ConfigPath      string
	ListenAddress   string
	CredentialsPath string
	LogLevel        string
	MaxConnections  int
}

// Load parses a TOML configuration file and returns the Config.
// If the file does not exist, returns the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig FileConfig
	if err := toml.Unmarshal(data, &fileConfig); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	cfg = mergeConfig(cfg, fileConfig.Server)
	return cfg, nil
}

// ApplyFlags merges command-line flag values into the config.
// Non-zero/non-empty flag values override config file values.
func ApplyFlags(cfg Config, f *Flags) Config {
	if f.ListenAddress != "" {
		cfg.ListenAddress = f.ListenAddress
	}
	if f.CredentialsPath != "" {
		cfg.CredentialsPath = f.CredentialsPath
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.MaxConnections > 0 {
		cfg.Limits.MaxConnections = f.MaxConnections
	}
	return cfg
}

// LoadWithFlags loads configuration from the path specified in flags,
// then applies flag overrides.
func LoadWithFlags(f *Flags) (Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	return ApplyFlags(cfg, f), nil
}

// ValidateStruct runs struct-tag validation (required fields, oneof
// constraints, numeric bounds) in addition to Config.Validate's cross-field
// checks.
func ValidateStruct(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return cfg.Validate()
}

// mergeConfig merges non-zero values from src into dst.
func mergeConfig(dst, src Config) Config {
	if src.ListenAddress != "" {
		dst.ListenAddress = src.ListenAddress
	}
	if src.CredentialsPath != "" {
		dst.CredentialsPath = src.CredentialsPath
	}
	if src.Banner != "" {
		dst.Banner = src.Banner
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Timeouts.Command != "" {
		dst.Timeouts.Command = src.Timeouts.Command
	}
	if src.Timeouts.Idle != "" {
		dst.Timeouts.Idle = src.Timeouts.Idle
	}
	if src.Limits.MaxConnections > 0 {
		dst.Limits.MaxConnections = src.Limits.MaxConnections
	}
	if src.Limits.MaxPipelineLen > 0 {
		dst.Limits.MaxPipelineLen = src.Limits.MaxPipelineLen
	}
	if src.Metrics.Enabled {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Address != "" {
		dst.Metrics.Address = src.Metrics.Address
	}
	if src.Metrics.Path != "" {
		dst.Metrics.Path = src.Metrics.Path
	}
	if src.Admin.Enabled {
		dst.Admin.Enabled = src.Admin.Enabled
	}
	if src.Admin.GRPCAddress != "" {
		dst.Admin.GRPCAddress = src.Admin.GRPCAddress
	}
	if src.MaxLoginAttempts > 0 {
		dst.MaxLoginAttempts = src.MaxLoginAttempts
	}
	return dst
}
