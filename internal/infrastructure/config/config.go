package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Orii Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Store     StoreConfig     `yaml:"store"`
	Decision  DecisionConfig  `yaml:"decision"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Profile   map[string]any  `yaml:"profile"`
	Devices   DevicesConfig   `yaml:"devices"`
}

// HubConfig identifies this hub deployment.
type HubConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// StoreConfig contains parameter-store (SQLite) settings.
type StoreConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
	OpTimeout   int    `yaml:"op_timeout"`   // seconds; bounded wait for the store gate
}

// DecisionConfig contains decision-service (LLM) client settings.
//
// When Enabled is false the client runs in stub mode: no network calls are
// made and every request yields an empty action list. Useful for development
// without an API key.
type DecisionConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Timeout    int    `yaml:"timeout"` // seconds per request
	MaxRetries int    `yaml:"max_retries"`
	PromptPath string `yaml:"prompt_path"` // optional override for the system prompt
}

// SchedulerConfig contains trigger-polling loop settings.
type SchedulerConfig struct {
	TickInterval int `yaml:"tick_interval"` // seconds between trigger scans
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Secret   string           `yaml:"secret"` // shared secret for mutating endpoints
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker is optional; virtual devices that ride on MQTT are skipped
// when Enabled is false.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig contains the topics the virtual MQTT devices use.
type MQTTTopicsConfig struct {
	Inbox  string `yaml:"inbox"`  // messages arriving here raise the inbox device trigger
	Notify string `yaml:"notify"` // the notify device publishes announcements here
}

// TelemetryConfig contains InfluxDB connection settings for state history.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings for the login endpoint.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes
}

// DevicesConfig contains per-plugin settings.
type DevicesConfig struct {
	AirSensor AirSensorConfig `yaml:"air_sensor"`
	Weather   WeatherConfig   `yaml:"weather"`
}

// AirSensorConfig contains air-quality sensor thresholds and warm-up time.
type AirSensorConfig struct {
	WarmUpSeconds  int `yaml:"warm_up_seconds"`
	CO2Warn        int `yaml:"co2_warn"`        // ppm; entry into abnormal1
	CO2Alert       int `yaml:"co2_alert"`       // ppm; entry into abnormal2
	TVOCWarn       int `yaml:"tvoc_warn"`       // ppb
	TVOCAlert      int `yaml:"tvoc_alert"`      // ppb
	RepeatInterval int `yaml:"repeat_interval"` // seconds between re-triggers while abnormal
}

// WeatherConfig contains the weather virtual-in device settings.
type WeatherConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	Location        string `yaml:"location"` // "lon,lat"
	City            string `yaml:"city"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ORII_SECTION_KEY
// For example: ORII_STORE_PATH, ORII_API_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Name:     "orii",
			Timezone: "UTC",
		},
		Store: StoreConfig{
			Path:        "./data/orii.db",
			WALMode:     true,
			BusyTimeout: 5,
			OpTimeout:   3,
		},
		Decision: DecisionConfig{
			BaseURL:    "https://api.deepseek.com",
			Model:      "deepseek-reasoner",
			Timeout:    120,
			MaxRetries: 2,
		},
		Scheduler: SchedulerConfig{
			TickInterval: 1,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "orii-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Topics: MQTTTopicsConfig{
				Inbox:  "orii/inbox",
				Notify: "orii/notify",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
		},
		Devices: DevicesConfig{
			AirSensor: AirSensorConfig{
				WarmUpSeconds:  15,
				CO2Warn:        1000,
				CO2Alert:       1500,
				TVOCWarn:       500,
				TVOCAlert:      1000,
				RepeatInterval: 60,
			},
			Weather: WeatherConfig{
				BaseURL:         "https://api.caiyunapp.com",
				RefreshInterval: 600,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ORII_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Store
	if v := os.Getenv("ORII_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	// Decision service
	if v := os.Getenv("ORII_DECISION_BASE_URL"); v != "" {
		cfg.Decision.BaseURL = v
	}
	if v := os.Getenv("ORII_DECISION_API_KEY"); v != "" {
		cfg.Decision.APIKey = v
	}
	if v := os.Getenv("ORII_DECISION_MODEL"); v != "" {
		cfg.Decision.Model = v
	}

	// API
	if v := os.Getenv("ORII_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ORII_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("ORII_API_SECRET"); v != "" {
		cfg.API.Secret = v
	}

	// MQTT
	if v := os.Getenv("ORII_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ORII_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ORII_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Telemetry
	if v := os.Getenv("ORII_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	// Weather device
	if v := os.Getenv("ORII_WEATHER_API_KEY"); v != "" {
		cfg.Devices.Weather.APIKey = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("ORII_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.Name == "" {
		errs = append(errs, "hub.name is required")
	}

	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if c.Store.OpTimeout < 1 {
		errs = append(errs, "store.op_timeout must be at least 1 second")
	}

	if c.Scheduler.TickInterval < 1 {
		errs = append(errs, "scheduler.tick_interval must be at least 1 second")
	}

	if c.Decision.Enabled {
		if c.Decision.BaseURL == "" {
			errs = append(errs, "decision.base_url is required when decision.enabled")
		}
		if c.Decision.APIKey == "" {
			errs = append(errs, "decision.api_key is required when decision.enabled (set ORII_DECISION_API_KEY)")
		}
		if c.Decision.Model == "" {
			errs = append(errs, "decision.model is required when decision.enabled")
		}
	}

	if c.Devices.AirSensor.RepeatInterval < 1 {
		errs = append(errs, "devices.air_sensor.repeat_interval must be at least 1 second")
	}
	if c.Devices.Weather.Enabled && c.Devices.Weather.RefreshInterval < 1 {
		errs = append(errs, "devices.weather.refresh_interval must be at least 1 second")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The shared secret gates every mutating endpoint. An empty secret would
	// let anyone on the network actuate physical devices.
	const minSecretLength = 16
	if c.API.Secret == "" {
		errs = append(errs, "api.secret is required (set ORII_API_SECRET environment variable)")
	} else if len(c.API.Secret) < minSecretLength {
		errs = append(errs, "api.secret must be at least 16 characters")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set ORII_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTimeout returns the per-request timeout as a Duration.
func (d DecisionConfig) GetTimeout() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// TickInterval returns the scheduler tick interval as a Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
