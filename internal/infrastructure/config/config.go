package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when BEAMLINE_CONFIG is not set.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for the beamline startup service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Beamline BeamlineConfig `yaml:"beamline"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Devices  DevicesConfig  `yaml:"devices"`
}

// BeamlineConfig identifies the beamline.
type BeamlineConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// DevicesConfig controls the device instantiation pass.
type DevicesConfig struct {
	// ListFile is the YAML device list.
	ListFile string `yaml:"list_file"`

	// Section is the top-level key inside ListFile. Default: "devices".
	Section string `yaml:"section"`

	// SettingsFile, when set, is applied to the created devices.
	SettingsFile string `yaml:"settings_file"`

	// WaitAttempts and WaitIntervalMS bound how long a device waits for a
	// dependency: attempts x interval.
	WaitAttempts   int `yaml:"wait_attempts"`
	WaitIntervalMS int `yaml:"wait_interval_ms"`

	// SettingsTimeout bounds settings application, in seconds.
	SettingsTimeout int `yaml:"settings_timeout"`

	// DetectCycles rejects device lists with reference cycles before
	// anything is constructed.
	DetectCycles bool `yaml:"detect_cycles"`
}

// WaitInterval returns the dependency poll interval as a Duration.
func (d DevicesConfig) WaitInterval() time.Duration {
	return time.Duration(d.WaitIntervalMS) * time.Millisecond
}

// SettingsTimeoutDuration returns the settings timeout as a Duration.
func (d DevicesConfig) SettingsTimeoutDuration() time.Duration {
	return time.Duration(d.SettingsTimeout) * time.Second
}

// Path returns the configuration file path from BEAMLINE_CONFIG or DefaultPath.
func Path() string {
	if v := os.Getenv("BEAMLINE_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BEAMLINE_SECTION_KEY
// For example: BEAMLINE_DATABASE_PATH, BEAMLINE_DEVICES_LIST_FILE
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
		Beamline: BeamlineConfig{
			ID:   "beamline-01",
			Name: "Beamline",
		},
		Database: DatabaseConfig{
			Path:        "./data/beamline.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "beamline-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
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
		Devices: DevicesConfig{
			ListFile:        "configs/devices.yml",
			Section:         "devices",
			WaitAttempts:    10,
			WaitIntervalMS:  1000,
			SettingsTimeout: 10,
			DetectCycles:    true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BEAMLINE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("BEAMLINE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BEAMLINE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BEAMLINE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BEAMLINE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v, ok := envBool("BEAMLINE_MQTT_ENABLED"); ok {
		cfg.MQTT.Enabled = v
	}

	// InfluxDB
	if v := os.Getenv("BEAMLINE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Devices
	if v := os.Getenv("BEAMLINE_DEVICES_LIST_FILE"); v != "" {
		cfg.Devices.ListFile = v
	}
	if v := os.Getenv("BEAMLINE_DEVICES_SECTION"); v != "" {
		cfg.Devices.Section = v
	}
	if v := os.Getenv("BEAMLINE_DEVICES_SETTINGS_FILE"); v != "" {
		cfg.Devices.SettingsFile = v
	}
	if v, ok := envBool("BEAMLINE_DEVICES_DETECT_CYCLES"); ok {
		cfg.Devices.DetectCycles = v
	}

	// Logging
	if v := os.Getenv("BEAMLINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// envBool reads a boolean environment variable. Unset or unparsable values
// are ignored.
func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Beamline.ID == "" {
		errs = append(errs, "beamline.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Devices.ListFile == "" {
		errs = append(errs, "devices.list_file is required")
	}
	if c.Devices.WaitAttempts < 1 {
		errs = append(errs, "devices.wait_attempts must be at least 1")
	}
	if c.Devices.WaitIntervalMS < 1 {
		errs = append(errs, "devices.wait_interval_ms must be at least 1")
	}
	if c.Devices.SettingsTimeout < 1 {
		errs = append(errs, "devices.settings_timeout must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
