package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementConstruction = "device_construction"
	MeasurementPass         = "instantiation_pass"
)

// PassMetric summarises one instantiation pass.
type PassMetric struct {
	PassID   string
	Beamline string
	Declared int
	Created  int
	Pending  int
	Duration time.Duration
	Failed   bool
}

// WriteConstructionMetric records how long one device took to build,
// including any time spent waiting for its dependencies.
//
// Example:
//
//	client.WriteConstructionMetric("gate01", "gated.Counter", 42*time.Millisecond)
func (c *Client) WriteConstructionMetric(device, typeRef string, d time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(constructionPoint(device, typeRef, d, time.Now()))
}

// WritePassMetric records the outcome of a pass.
func (c *Client) WritePassMetric(m PassMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(passPoint(m, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func constructionPoint(device, typeRef string, d time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementConstruction,
		map[string]string{
			"device": device,
			"type":   typeRef,
		},
		map[string]interface{}{
			"duration_ms": float64(d) / float64(time.Millisecond),
		},
		ts,
	)
}

func passPoint(m PassMetric, ts time.Time) *write.Point {
	tags := map[string]string{
		"status": "ok",
	}
	if m.Failed {
		tags["status"] = "failed"
	}
	if m.Beamline != "" {
		tags["beamline"] = m.Beamline
	}

	return write.NewPoint(
		MeasurementPass,
		tags,
		map[string]interface{}{
			"pass_id":     m.PassID,
			"declared":    m.Declared,
			"created":     m.Created,
			"pending":     m.Pending,
			"duration_ms": float64(m.Duration) / float64(time.Millisecond),
		},
		ts,
	)
}
