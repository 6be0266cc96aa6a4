package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/beamline-core/internal/infrastructure/mqtt"
)

// Transport publishes commands to the protocol bridges.
// *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// commandQoS is at-least-once; bridges deduplicate by timestamp.
const commandQoS byte = 1

// Command is the payload sent for every field write or trigger.
type Command struct {
	Device    string    `json:"device"`
	Field     string    `json:"field"`
	Value     any       `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// hardware is the shared part of every device with a control-system location.
type hardware struct {
	name      string
	location  string
	transport Transport

	mu     sync.RWMutex
	md     map[string]any
	fields map[string]any
	closed bool
}

func newHardware(name, location string, transport Transport) (*hardware, error) {
	if location == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNoLocation)
	}
	if transport == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoTransport)
	}
	return &hardware{
		name:      name,
		location:  location,
		transport: transport,
		fields:    make(map[string]any),
	}, nil
}

// Name returns the device name.
func (h *hardware) Name() string { return h.name }

// Location returns the control-system address.
func (h *hardware) Location() string { return h.location }

// SetMetadata attaches free-form metadata.
func (h *hardware) SetMetadata(md map[string]any) {
	h.mu.Lock()
	h.md = md
	h.mu.Unlock()
}

// Metadata returns the attached metadata.
func (h *hardware) Metadata() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.md
}

// Connect checks that commands can reach the bridge.
func (h *hardware) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c, ok := h.transport.(interface{ IsConnected() bool }); ok && !c.IsConnected() {
		return fmt.Errorf("%s: %w", h.name, ErrTransportDown)
	}
	return nil
}

// Close stops the device from sending further commands. Closing twice is
// a no-op.
func (h *hardware) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// Value returns the last value written to field.
func (h *hardware) Value(field string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.fields[field]
	return v, ok
}

// write publishes a field write and records the value locally.
func (h *hardware) write(ctx context.Context, field string, value any) error {
	if err := h.send(ctx, field, value); err != nil {
		return err
	}
	h.mu.Lock()
	h.fields[field] = value
	h.mu.Unlock()
	return nil
}

// send publishes a command without recording state (triggers, stop).
func (h *hardware) send(ctx context.Context, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return fmt.Errorf("%s: %w", h.name, ErrClosed)
	}

	payload, err := json.Marshal(Command{
		Device:    h.name,
		Field:     field,
		Value:     value,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: encoding %s: %w", h.name, field, err)
	}

	topic := mqtt.Topics{}.DeviceCommand(h.location, field)
	if err := h.transport.Publish(topic, payload, commandQoS, false); err != nil {
		return fmt.Errorf("%s: writing %s: %w", h.name, field, err)
	}
	return nil
}

// toFloat accepts the numeric types produced by YAML and JSON decoding.
func toFloat(field string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, field, v)
	}
}
