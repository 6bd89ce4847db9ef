package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry backend names.
const (
	RegistryBackendSQLite = "sqlite"
	RegistryBackendFile   = "file"
)

// Config is the root configuration structure for the N2K switching bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	N2K       N2KConfig       `yaml:"n2k"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// APIConfig contains HTTP diagnostics server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
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

// N2KConfig contains the switching bridge settings.
type N2KConfig struct {
	// ConvertSwitchControlToCommand turns Switch Control (127502) into
	// Command (126208) messages.
	ConvertSwitchControlToCommand bool `yaml:"convert_switch_control_to_command"`

	// ConvertCommandToSwitchControl turns switch Commands (126208) into
	// Switch Control (127502) messages.
	ConvertCommandToSwitchControl bool `yaml:"convert_command_to_switch_control"`

	// InboundTopic carries analyzer JSON decoded from the bus.
	InboundTopic string `yaml:"inbound_topic"`

	// OutboundTopic accepts JSON messages to be written to the bus.
	OutboundTopic string `yaml:"outbound_topic"`

	QoS int `yaml:"qos"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`

	Registry RegistryConfig `yaml:"registry"`
}

// RegistryConfig selects where the source registry is read from.
type RegistryConfig struct {
	// Backend is "sqlite" (n2k_sources table) or "file" (sources JSON).
	Backend string `yaml:"backend"`

	// SourcesFile is the sources JSON path for the file backend.
	SourcesFile string `yaml:"sources_file"`

	// RefreshInterval is the reload period in seconds.
	RefreshInterval int `yaml:"refresh_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: N2KSWITCH_SECTION_KEY
// For example: N2KSWITCH_DATABASE_PATH, N2KSWITCH_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
// Both conversion flags are off, so a bare config is inert.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/n2kswitch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "n2kswitch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
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
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		N2K: N2KConfig{
			InboundTopic:   "n2k/analyzer/out",
			OutboundTopic:  "n2k/json/out",
			QoS:            1,
			HealthInterval: 30,
			Registry: RegistryConfig{
				Backend:         RegistryBackendSQLite,
				RefreshInterval: 10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: N2KSWITCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("N2KSWITCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("N2KSWITCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("N2KSWITCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("N2KSWITCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("N2KSWITCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Conversion flags
	if v, ok := envBool("N2KSWITCH_CONVERT_SWITCH_CONTROL_TO_COMMAND"); ok {
		cfg.N2K.ConvertSwitchControlToCommand = v
	}
	if v, ok := envBool("N2KSWITCH_CONVERT_COMMAND_TO_SWITCH_CONTROL"); ok {
		cfg.N2K.ConvertCommandToSwitchControl = v
	}
}

// envBool reads a boolean variable. Unset or unparseable values report false.
func envBool(key string) (value, ok bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// N2K bridge
	if c.N2K.InboundTopic == "" {
		errs = append(errs, "n2k.inbound_topic is required")
	}
	if c.N2K.OutboundTopic == "" {
		errs = append(errs, "n2k.outbound_topic is required")
	}
	if c.N2K.InboundTopic != "" && c.N2K.InboundTopic == c.N2K.OutboundTopic {
		errs = append(errs, "n2k.inbound_topic and n2k.outbound_topic must differ")
	}
	if c.N2K.QoS < 0 || c.N2K.QoS > 2 {
		errs = append(errs, "n2k.qos must be 0, 1, or 2")
	}
	if c.N2K.HealthInterval < 1 {
		errs = append(errs, "n2k.health_interval must be at least 1 second")
	}
	if c.N2K.Registry.RefreshInterval < 1 {
		errs = append(errs, "n2k.registry.refresh_interval must be at least 1 second")
	}
	switch c.N2K.Registry.Backend {
	case RegistryBackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite registry")
		}
	case RegistryBackendFile:
		if c.N2K.Registry.SourcesFile == "" {
			errs = append(errs, "n2k.registry.sources_file is required for the file registry")
		}
	default:
		errs = append(errs, fmt.Sprintf("n2k.registry.backend must be %q or %q",
			RegistryBackendSQLite, RegistryBackendFile))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// GetHealthInterval returns the bridge health publish period.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.N2K.HealthInterval) * time.Second
}

// GetRefreshInterval returns the registry reload period.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.N2K.Registry.RefreshInterval) * time.Second
}
