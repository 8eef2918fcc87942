package config

import (
	"os"
	"path/filepath"
	"testing"
)

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shellserve.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/shellserve.toml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}

	expected := Default()
	if cfg.ListenAddress != expected.ListenAddress {
		t.Errorf("expected listen_address %q, got %q", expected.ListenAddress, cfg.ListenAddress)
	}
}

func TestLoadValidTOML(t *testing.T) {
	content := `
[server]
listen_address = "0.0.0.0:4321"
credentials_path = "/etc/shellserve/credentials.txt"
log_level = "debug"
max_login_attempts = 5

[server.limits]
max_connections = 50
max_pipeline_stages = 8

[server.timeouts]
command = "2m"
idle = "45m"

[server.metrics]
enabled = true
address = ":9191"
path = "/metrics"
`

	path := createTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddress != "0.0.0.0:4321" {
		t.Errorf("listen_address = %q, want '0.0.0.0:4321'", cfg.ListenAddress)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want 'debug'", cfg.LogLevel)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Errorf("max_login_attempts = %d, want 5", cfg.MaxLoginAttempts)
	}
	if cfg.Limits.MaxConnections != 50 {
		t.Errorf("max_connections = %d, want 50", cfg.Limits.MaxConnections)
	}
	if cfg.Limits.MaxPipelineLen != 8 {
		t.Errorf("max_pipeline_stages = %d, want 8", cfg.Limits.MaxPipelineLen)
	}
	if cfg.Timeouts.Command != "2m" {
		t.Errorf("command timeout = %q, want '2m'", cfg.Timeouts.Command)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9191" {
		t.Errorf("metrics config not applied: %+v", cfg.Metrics)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := createTempConfig(t, "not valid = = toml [[[")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := Default()
	f := &Flags{
		ListenAddress:   ":9999",
		CredentialsPath: "/tmp/creds.txt",
		LogLevel:        "warn",
		MaxConnections:  7,
	}

	cfg = ApplyFlags(cfg, f)

	if cfg.ListenAddress != ":9999" {
		t.Errorf("listen address not overridden: %q", cfg.ListenAddress)
	}
	if cfg.CredentialsPath != "/tmp/creds.txt" {
		t.Errorf("credentials path not overridden: %q", cfg.CredentialsPath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level not overridden: %q", cfg.LogLevel)
	}
	if cfg.Limits.MaxConnections != 7 {
		t.Errorf("max connections not overridden: %d", cfg.Limits.MaxConnections)
	}
}

func TestApplyFlagsLeavesUnsetValuesAlone(t *testing.T) {
	cfg := Default()
	f := &Flags{}

	got := ApplyFlags(cfg, f)
	if got != cfg {
		t.Errorf("ApplyFlags with empty Flags changed config: got %+v, want %+v", got, cfg)
	}
}

func TestValidateStruct(t *testing.T) {
	cfg := Default()
	if err := ValidateStruct(&cfg); err != nil {
		t.Errorf("default config should pass struct validation: %v", err)
	}

	cfg.ListenAddress = ""
	if err := ValidateStruct(&cfg); err == nil {
		t.Error("expected struct validation error for empty listen_address")
	}
}
