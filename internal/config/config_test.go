package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddress != "0.0.0.0:1234" {
		t.Errorf("expected listen_address '0.0.0.0:1234', got %q", cfg.ListenAddress)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log_level 'info', got %q", cfg.LogLevel)
	}
	if cfg.Limits.MaxConnections != 100 {
		t.Errorf("expected max_connections 100, got %d", cfg.Limits.MaxConnections)
	}
	if cfg.Limits.MaxPipelineLen != 16 {
		t.Errorf("expected max_pipeline_stages 16, got %d", cfg.Limits.MaxPipelineLen)
	}
	if cfg.MaxLoginAttempts != 3 {
		t.Errorf("expected max_login_attempts 3, got %d", cfg.MaxLoginAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Run("rejects empty listen address", func(t *testing.T) {
		cfg := Default()
		cfg.ListenAddress = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty listen_address")
		}
	})

	t.Run("rejects empty credentials path", func(t *testing.T) {
		cfg := Default()
		cfg.CredentialsPath = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty credentials_path")
		}
	})

	t.Run("rejects non-positive max connections", func(t *testing.T) {
		cfg := Default()
		cfg.Limits.MaxConnections = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for zero max_connections")
		}
	})

	t.Run("rejects pipeline stage cap out of range", func(t *testing.T) {
		cfg := Default()
		cfg.Limits.MaxPipelineLen = 17
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for max_pipeline_stages > 16")
		}
	})

	t.Run("rejects malformed timeout", func(t *testing.T) {
		cfg := Default()
		cfg.Timeouts.Command = "not-a-duration"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for malformed command timeout")
		}
	})

	t.Run("requires metrics address when enabled", func(t *testing.T) {
		cfg := Default()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing metrics address")
		}
	})
}

func TestTimeoutAccessors(t *testing.T) {
	var tc TimeoutsConfig

	if got := tc.CommandTimeout(); got.String() != "1m0s" {
		t.Errorf("default CommandTimeout() = %v, want 1m0s", got)
	}
	if got := tc.IdleTimeout(); got.String() != "30m0s" {
		t.Errorf("default IdleTimeout() = %v, want 30m0s", got)
	}

	tc.Command = "invalid"
	if got := tc.CommandTimeout(); got.String() != "1m0s" {
		t.Errorf("invalid CommandTimeout() = %v, want fallback 1m0s", got)
	}
}
