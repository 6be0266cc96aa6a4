package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/beamline-core/internal/device"
	"github.com/nerrad567/beamline-core/internal/devinit"
	"github.com/nerrad567/beamline-core/internal/infrastructure/database"
	"github.com/nerrad567/beamline-core/internal/infrastructure/influxdb"
)

const testDeviceList = `
devices:
  gate01:
    driver: dgg2.Timer
    uri: "tango://hasep23oh:10000/p23/dgg2/eh.01"
    kwargs:
      name: gate01
  counter01:
    driver: sis3820.Counter
    uri: "tango://hasep23oh:10000/p23/counter/eh.01"
    kwargs:
      name: counter01
  gated01:
    driver: gated.Counter
    kwargs:
      name: gated01
      gate: "gate01#device"
      counter: "counter01#device"
      md:
        hutch: EH1
  mot1:
    driver: vm.Motor
    uri: "tango://hasep23oh:10000/p23/motor/exp.01"
    kwargs:
      name: mot1
`

// writeTestSetup writes a config with MQTT and InfluxDB disabled and
// returns the config path and database path.
func writeTestSetup(t *testing.T, deviceList, settings string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	listPath := filepath.Join(dir, "devices.yml")
	if err := os.WriteFile(listPath, []byte(deviceList), 0o600); err != nil {
		t.Fatalf("writing device list: %v", err)
	}

	settingsLine := ""
	if settings != "" {
		settingsPath := filepath.Join(dir, "settings.yaml")
		if err := os.WriteFile(settingsPath, []byte(settings), 0o600); err != nil {
			t.Fatalf("writing settings: %v", err)
		}
		settingsLine = fmt.Sprintf("  settings_file: %q\n", settingsPath)
	}

	dbPath := filepath.Join(dir, "data", "beamline.db")
	configContent := fmt.Sprintf(`
beamline:
  id: p23
database:
  path: %q
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
  output: stderr
devices:
  list_file: %q
  wait_attempts: 5
  wait_interval_ms: 20
  settings_timeout: 5
  detect_cycles: true
%s`, dbPath, listPath, settingsLine)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("BEAMLINE_CONFIG", configPath)
	return configPath, dbPath
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("BEAMLINE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_CreatesAndRecordsDevices(t *testing.T) {
	_, dbPath := writeTestSetup(t, testDeviceList, "gate01:\n  SampleTime: 0.5\nmot1:\n  Position: 3.0\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	repo := device.NewSQLiteRepository(db.DB)
	records, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "counter01,gate01,gated01,mot1" {
		t.Errorf("inventory = %s", got)
	}

	gated, err := repo.GetDevice(ctx, "gated01")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if gated.Metadata["hutch"] != "EH1" {
		t.Errorf("gated01 metadata = %v", gated.Metadata)
	}

	passes, err := repo.ListPasses(ctx, 0)
	if err != nil {
		t.Fatalf("ListPasses() error = %v", err)
	}
	if len(passes) != 1 || !passes[0].Succeeded() || passes[0].Completed != 4 {
		t.Errorf("passes = %+v", passes)
	}
}

func TestRun_CycleRejected(t *testing.T) {
	cyclic := `
devices:
  a:
    driver: gated.Counter
    kwargs:
      name: a
      gate: "b#device"
      counter: "tango://host/p23/counter/1"
  b:
    driver: gated.Counter
    kwargs:
      name: b
      gate: "a#device"
      counter: "tango://host/p23/counter/2"
`
	writeTestSetup(t, cyclic, "")

	err := run(context.Background())
	if !errors.Is(err, devinit.ErrInvalidSpec) {
		t.Fatalf("run() error = %v, want ErrInvalidSpec", err)
	}
}

func TestRun_UnknownSettingsDevice(t *testing.T) {
	writeTestSetup(t, testDeviceList, "ghost:\n  SampleTime: 1.0\n")

	err := run(context.Background())
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("run() error = %v, want ErrDeviceNotFound", err)
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

type publishedMessage struct {
	topic    string
	payload  any
	retained bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []publishedMessage
	err  error
}

func (m *mockPublisher) PublishJSON(topic string, v any, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, publishedMessage{topic, v, retained})
	return m.err
}

type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Debug(msg string, _ ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, msg)
	l.mu.Unlock()
}

func TestEventPublisher(t *testing.T) {
	pub := &mockPublisher{}
	p := newEventPublisher(pub, "p23", &mockLogger{})

	p.DeviceCreated(context.Background(), devinit.CreatedEvent{PassID: "x", Name: "gate01", TypeRef: "dgg2.Timer"})
	p.PassFinished(context.Background(), devinit.Report{
		PassID:   "x",
		Declared: []string{"gate01", "mot1"},
		Pending:  []string{"mot1"},
		Err:      errors.New("mot1 failed"),
	})

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}

	created := pub.msgs[0]
	if created.topic != "beamline/core/device/gate01/created" || !created.retained {
		t.Errorf("created message = %+v", created)
	}
	if ev, ok := created.payload.(createdEvent); !ok || ev.Beamline != "p23" || ev.Type != "dgg2.Timer" {
		t.Errorf("created payload = %+v", created.payload)
	}

	finished := pub.msgs[1]
	if finished.topic != "beamline/core/event/pass_finished" || finished.retained {
		t.Errorf("finished message = %+v", finished)
	}
	ev, ok := finished.payload.(passFinishedEvent)
	if !ok || ev.Success || ev.Error != "mot1 failed" || len(ev.Pending) != 1 {
		t.Errorf("finished payload = %+v", finished.payload)
	}
}

func TestEventPublisher_LogsFailures(t *testing.T) {
	pub := &mockPublisher{err: errors.New("mqtt: client not connected")}
	log := &mockLogger{}
	p := newEventPublisher(pub, "p23", log)

	p.DeviceCreated(context.Background(), devinit.CreatedEvent{Name: "gate01"})
	p.PassFinished(context.Background(), devinit.Report{PassID: "x"})

	if len(log.lines) != 2 {
		t.Errorf("warnings = %v, want 2", log.lines)
	}
}

type mockMetrics struct {
	construction []string
	passes       []influxdb.PassMetric
}

func (m *mockMetrics) WriteConstructionMetric(device, typeRef string, _ time.Duration) {
	m.construction = append(m.construction, device+"/"+typeRef)
}

func (m *mockMetrics) WritePassMetric(pm influxdb.PassMetric) {
	m.passes = append(m.passes, pm)
}

func TestMetricsRecorder(t *testing.T) {
	w := &mockMetrics{}
	r := newMetricsRecorder(w, "p23")

	r.DeviceCreated(context.Background(), devinit.CreatedEvent{Name: "mot1", TypeRef: "vm.Motor"})
	r.PassFinished(context.Background(), devinit.Report{
		PassID:    "x",
		Declared:  []string{"mot1"},
		Completed: []string{"mot1"},
		Duration:  time.Second,
	})

	if len(w.construction) != 1 || w.construction[0] != "mot1/vm.Motor" {
		t.Errorf("construction = %v", w.construction)
	}
	if len(w.passes) != 1 {
		t.Fatalf("passes = %v", w.passes)
	}
	pm := w.passes[0]
	if pm.Failed || pm.Created != 1 || pm.Declared != 1 || pm.Beamline != "p23" {
		t.Errorf("pass metric = %+v", pm)
	}
}

func TestDryRunTransport(t *testing.T) {
	log := &mockLogger{}
	tr := newDryRunTransport(log)

	if err := tr.Publish("beamline/command/p23/dgg2/eh.01/Start", []byte(`{}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(log.lines) != 1 {
		t.Errorf("logged %d lines, want 1", len(log.lines))
	}
}
