package main

import (
	"context"
	"time"

	"github.com/nerrad567/beamline-core/internal/devinit"
	"github.com/nerrad567/beamline-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/beamline-core/internal/infrastructure/mqtt"
)

// jsonPublisher is the part of mqtt.Client the event publisher needs.
type jsonPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

type debugLogger interface {
	Debug(msg string, args ...any)
}

// createdEvent is published retained on beamline/core/device/{name}/created.
type createdEvent struct {
	Beamline   string         `json:"beamline"`
	PassID     string         `json:"pass_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Location   string         `json:"location,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DurationMS float64        `json:"duration_ms"`
}

// passFinishedEvent is published on beamline/core/event/pass_finished.
type passFinishedEvent struct {
	Beamline   string   `json:"beamline"`
	PassID     string   `json:"pass_id"`
	Success    bool     `json:"success"`
	Declared   int      `json:"declared"`
	Completed  int      `json:"completed"`
	Pending    []string `json:"pending,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS float64  `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"`
}

// eventPublisher announces pass progress on MQTT.
type eventPublisher struct {
	client   jsonPublisher
	beamline string
	log      warnLogger
}

func newEventPublisher(client jsonPublisher, beamline string, log warnLogger) *eventPublisher {
	return &eventPublisher{client: client, beamline: beamline, log: log}
}

func (p *eventPublisher) DeviceCreated(_ context.Context, ev devinit.CreatedEvent) {
	payload := createdEvent{
		Beamline:   p.beamline,
		PassID:     ev.PassID,
		Name:       ev.Name,
		Type:       ev.TypeRef,
		Location:   ev.Location,
		Metadata:   ev.Metadata,
		DurationMS: millis(ev.Duration),
	}
	if err := p.client.PublishJSON(mqtt.Topics{}.CoreDeviceCreated(ev.Name), payload, true); err != nil {
		p.log.Warn("publishing device created failed", "device", ev.Name, "error", err)
	}
}

func (p *eventPublisher) PassFinished(_ context.Context, report devinit.Report) {
	payload := passFinishedEvent{
		Beamline:   p.beamline,
		PassID:     report.PassID,
		Success:    report.Success(),
		Declared:   len(report.Declared),
		Completed:  len(report.Completed),
		Pending:    report.Pending,
		DurationMS: millis(report.Duration),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if report.Err != nil {
		payload.Error = report.Err.Error()
	}
	if err := p.client.PublishJSON(mqtt.Topics{}.CoreEvent("pass_finished"), payload, false); err != nil {
		p.log.Warn("publishing pass finished failed", "pass_id", report.PassID, "error", err)
	}
}

// metricsWriter is the part of influxdb.Client the recorder needs.
type metricsWriter interface {
	WriteConstructionMetric(device, typeRef string, d time.Duration)
	WritePassMetric(m influxdb.PassMetric)
}

// metricsRecorder writes construction and pass timings to InfluxDB.
type metricsRecorder struct {
	writer   metricsWriter
	beamline string
}

func newMetricsRecorder(writer metricsWriter, beamline string) *metricsRecorder {
	return &metricsRecorder{writer: writer, beamline: beamline}
}

func (m *metricsRecorder) DeviceCreated(_ context.Context, ev devinit.CreatedEvent) {
	m.writer.WriteConstructionMetric(ev.Name, ev.TypeRef, ev.Duration)
}

func (m *metricsRecorder) PassFinished(_ context.Context, report devinit.Report) {
	m.writer.WritePassMetric(influxdb.PassMetric{
		PassID:   report.PassID,
		Beamline: m.beamline,
		Declared: len(report.Declared),
		Created:  len(report.Completed),
		Pending:  len(report.Pending),
		Duration: report.Duration,
		Failed:   !report.Success(),
	})
}

// dryRunTransport logs device commands instead of sending them.
type dryRunTransport struct {
	log debugLogger
}

func newDryRunTransport(log debugLogger) *dryRunTransport {
	return &dryRunTransport{log: log}
}

func (t *dryRunTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	t.log.Debug("device command", "topic", topic, "payload", string(payload), "qos", qos, "retained", retained)
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
