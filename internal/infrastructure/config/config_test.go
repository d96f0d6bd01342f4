package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecrets = `
api:
  secret: "test-shared-secret-16ch"
security:
  jwt:
    secret: "test-jwt-secret-key-at-least-32-chars!"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
hub:
  name: "test-hub"
store:
  path: "/tmp/orii-test.db"
  wal_mode: true
  busy_timeout: 5
decision:
  enabled: false
api:
  host: "0.0.0.0"
  port: 8080
  secret: "test-shared-secret-16ch"
security:
  jwt:
    secret: "test-jwt-secret-key-at-least-32-chars!"
`

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hub.Name != "test-hub" {
		t.Errorf("Hub.Name = %q, want %q", cfg.Hub.Name, "test-hub")
	}
	if cfg.Store.Path != "/tmp/orii-test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/orii-test.db")
	}
	// Defaults survive partial files
	if cfg.Scheduler.TickInterval != 1 {
		t.Errorf("Scheduler.TickInterval = %d, want 1", cfg.Scheduler.TickInterval)
	}
	if cfg.MQTT.Topics.Inbox != "orii/inbox" {
		t.Errorf("MQTT.Topics.Inbox = %q, want %q", cfg.MQTT.Topics.Inbox, "orii/inbox")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Missing secrets must fail validation
	content := `
store:
  path: "/tmp/orii-test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "api.secret") {
		t.Errorf("error should mention api.secret, got: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.API.Secret = "test-shared-secret-16ch"
		cfg.Security.JWT.Secret = "test-jwt-secret-key-at-least-32-chars!"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "empty store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name:    "zero tick interval",
			mutate:  func(c *Config) { c.Scheduler.TickInterval = 0 },
			wantErr: "scheduler.tick_interval",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "short api secret",
			mutate:  func(c *Config) { c.API.Secret = "short" },
			wantErr: "api.secret",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "security.jwt.secret",
		},
		{
			name:    "zero air sensor repeat interval",
			mutate:  func(c *Config) { c.Devices.AirSensor.RepeatInterval = 0 },
			wantErr: "devices.air_sensor.repeat_interval",
		},
		{
			name: "weather enabled with zero refresh interval",
			mutate: func(c *Config) {
				c.Devices.Weather.Enabled = true
				c.Devices.Weather.RefreshInterval = 0
			},
			wantErr: "devices.weather.refresh_interval",
		},
		{
			name: "weather disabled ignores refresh interval",
			mutate: func(c *Config) {
				c.Devices.Weather.Enabled = false
				c.Devices.Weather.RefreshInterval = 0
			},
			wantErr: "",
		},
		{
			name: "decision enabled without key",
			mutate: func(c *Config) {
				c.Decision.Enabled = true
				c.Decision.APIKey = ""
			},
			wantErr: "decision.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scheduler.TickInterval = 2
	cfg.API.Timeouts.Read = 15

	if got := cfg.TickInterval(); got != 2*time.Second {
		t.Errorf("TickInterval() = %v, want 2s", got)
	}
	if got := cfg.GetReadTimeout(); got != 15*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 15s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORII_STORE_PATH", "/env/orii.db")
	t.Setenv("ORII_API_SECRET", "env-shared-secret-16c")
	t.Setenv("ORII_API_PORT", "9090")
	t.Setenv("ORII_DECISION_API_KEY", "sk-env")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Store.Path != "/env/orii.db" {
		t.Errorf("Store.Path = %q, want env override", cfg.Store.Path)
	}
	if cfg.API.Secret != "env-shared-secret-16c" {
		t.Errorf("API.Secret = %q, want env override", cfg.API.Secret)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Decision.APIKey != "sk-env" {
		t.Errorf("Decision.APIKey = %q, want env override", cfg.Decision.APIKey)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Hub.Name != "orii" {
		t.Errorf("default Hub.Name = %q, want %q", cfg.Hub.Name, "orii")
	}
	if cfg.Store.OpTimeout != 3 {
		t.Errorf("default Store.OpTimeout = %d, want 3", cfg.Store.OpTimeout)
	}
	if cfg.Devices.AirSensor.WarmUpSeconds != 15 {
		t.Errorf("default AirSensor.WarmUpSeconds = %d, want 15", cfg.Devices.AirSensor.WarmUpSeconds)
	}
	if cfg.Devices.AirSensor.RepeatInterval != 60 {
		t.Errorf("default AirSensor.RepeatInterval = %d, want 60", cfg.Devices.AirSensor.RepeatInterval)
	}
}
