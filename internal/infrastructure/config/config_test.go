package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
beamline:
  id: "p23"
database:
  path: "/tmp/test.db"
mqtt:
  enabled: false
devices:
  list_file: "/etc/beamline/devices.yml"
  section: "eh1_devices"
  wait_attempts: 5
  wait_interval_ms: 200
  detect_cycles: false
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Beamline.ID != "p23" {
		t.Errorf("Beamline.ID = %q, want %q", cfg.Beamline.ID, "p23")
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = true, want false")
	}
	if cfg.Devices.ListFile != "/etc/beamline/devices.yml" || cfg.Devices.Section != "eh1_devices" {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if cfg.Devices.WaitInterval() != 200*time.Millisecond {
		t.Errorf("WaitInterval() = %v, want 200ms", cfg.Devices.WaitInterval())
	}
	if cfg.Devices.DetectCycles {
		t.Error("DetectCycles = true, want false from file")
	}
	// Unset keys keep their defaults.
	if cfg.Devices.SettingsTimeoutDuration() != 10*time.Second {
		t.Errorf("SettingsTimeoutDuration() = %v, want 10s", cfg.Devices.SettingsTimeoutDuration())
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
	_, err := Load(writeConfig(t, "beamline:\n  id: \"\"\n"))
	if err == nil || !strings.Contains(err.Error(), "beamline.id") {
		t.Errorf("Load() error = %v, want beamline.id validation error", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing beamline ID", mutate: func(c *Config) { c.Beamline.ID = "" }, wantErr: "beamline.id"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "invalid broker port", mutate: func(c *Config) { c.MQTT.Broker.Port = 70000 }, wantErr: "mqtt.broker.port"},
		{
			name: "port ignored when mqtt disabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.MQTT.Broker.Port = 0
			},
		},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Bucket = "b" }, wantErr: "influxdb.url"},
		{name: "missing device list", mutate: func(c *Config) { c.Devices.ListFile = "" }, wantErr: "devices.list_file"},
		{name: "zero wait attempts", mutate: func(c *Config) { c.Devices.WaitAttempts = 0 }, wantErr: "devices.wait_attempts"},
		{name: "zero wait interval", mutate: func(c *Config) { c.Devices.WaitIntervalMS = 0 }, wantErr: "devices.wait_interval_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := defaultConfig()
	cfg.Beamline.ID = ""
	cfg.Devices.ListFile = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"beamline.id", "devices.list_file"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %s", err, want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("BEAMLINE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("BEAMLINE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("BEAMLINE_MQTT_USERNAME", "testuser")
	t.Setenv("BEAMLINE_MQTT_PASSWORD", "testpass")
	t.Setenv("BEAMLINE_MQTT_ENABLED", "false")
	t.Setenv("BEAMLINE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("BEAMLINE_DEVICES_LIST_FILE", "/srv/devices.yml")
	t.Setenv("BEAMLINE_DEVICES_SECTION", "test_devices")
	t.Setenv("BEAMLINE_DEVICES_SETTINGS_FILE", "/srv/settings.yml")
	t.Setenv("BEAMLINE_DEVICES_DETECT_CYCLES", "0")
	t.Setenv("BEAMLINE_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = true, want false")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Devices.ListFile != "/srv/devices.yml" || cfg.Devices.Section != "test_devices" {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if cfg.Devices.SettingsFile != "/srv/settings.yml" {
		t.Errorf("Devices.SettingsFile = %q", cfg.Devices.SettingsFile)
	}
	if cfg.Devices.DetectCycles {
		t.Error("Devices.DetectCycles = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_BadBoolIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("BEAMLINE_MQTT_ENABLED", "maybe")
	applyEnvOverrides(cfg)
	if !cfg.MQTT.Enabled {
		t.Error("unparsable bool changed MQTT.Enabled")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("BEAMLINE_CONFIG", "")
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("BEAMLINE_CONFIG", "/etc/beamline/config.yaml")
	if got := Path(); got != "/etc/beamline/config.yaml" {
		t.Errorf("Path() = %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Devices.WaitAttempts != 10 || cfg.Devices.WaitInterval() != time.Second {
		t.Errorf("default wait budget = %d x %v, want 10 x 1s", cfg.Devices.WaitAttempts, cfg.Devices.WaitInterval())
	}
	if !cfg.Devices.DetectCycles {
		t.Error("defaultConfig should detect cycles")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Devices.Section != "devices" {
		t.Errorf("defaultConfig Devices.Section = %q", cfg.Devices.Section)
	}
}
