package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FieldResetOnTrigger controls whether counters are reset before each gate.
const FieldResetOnTrigger = "reset_on_trigger"

// Resettable is implemented by counters that a gated device can clear.
type Resettable interface {
	Name() string
	Reset(ctx context.Context) error
}

// gatedBase holds the state shared by GatedCounter and GatedArray.
type gatedBase struct {
	name string
	gate *Timer

	mu             sync.RWMutex
	md             map[string]any
	resetOnTrigger bool

	// owned are the private devices built from addresses for this device.
	owned []io.Closer
}

// Name returns the device name.
func (g *gatedBase) Name() string { return g.name }

// Gate returns the gate timer.
func (g *gatedBase) Gate() *Timer { return g.gate }

// SetMetadata attaches free-form metadata.
func (g *gatedBase) SetMetadata(md map[string]any) {
	g.mu.Lock()
	g.md = md
	g.mu.Unlock()
}

// Metadata returns the attached metadata.
func (g *gatedBase) Metadata() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.md
}

// ResetOnTrigger reports whether counters are cleared before each gate.
func (g *gatedBase) ResetOnTrigger() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.resetOnTrigger
}

// own hands a private sub-device to g; Close closes it.
func (g *gatedBase) own(c io.Closer) {
	g.mu.Lock()
	g.owned = append(g.owned, c)
	g.mu.Unlock()
}

// Close closes the private sub-devices. Gates and counters referenced from
// the device list belong to the registry and are left open.
func (g *gatedBase) Close() error {
	g.mu.Lock()
	owned := g.owned
	g.owned = nil
	g.mu.Unlock()

	var errs []error
	for _, c := range owned {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Configure implements device.Configurable.
func (g *gatedBase) Configure(ctx context.Context, field string, value any) error {
	switch field {
	case FieldResetOnTrigger:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s expects a bool, got %T", ErrInvalidValue, field, value)
		}
		g.mu.Lock()
		g.resetOnTrigger = b
		g.mu.Unlock()
		return nil
	case FieldSampleTime:
		return g.gate.Configure(ctx, field, value)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, g.name, field)
	}
}

// GatedCounter pairs a gate timer with one counter.
type GatedCounter struct {
	gatedBase
	counter Resettable
}

// NewGatedCounter creates a gated counter over existing devices.
func NewGatedCounter(name string, gate *Timer, counter Resettable) (*GatedCounter, error) {
	if gate == nil || counter == nil {
		return nil, fmt.Errorf("%s: gate and counter are required", name)
	}
	return &GatedCounter{
		gatedBase: gatedBase{name: name, gate: gate, resetOnTrigger: true},
		counter:   counter,
	}, nil
}

// Counter returns the counter.
func (g *GatedCounter) Counter() Resettable { return g.counter }

// Trigger resets the counter if enabled, then fires the gate.
func (g *GatedCounter) Trigger(ctx context.Context) error {
	if g.ResetOnTrigger() {
		if err := g.counter.Reset(ctx); err != nil {
			return err
		}
	}
	return g.gate.Trigger(ctx)
}

// GatedArray pairs a gate timer with several counters.
type GatedArray struct {
	gatedBase
	counters []Resettable
}

// NewGatedArray creates a gated array over existing devices.
func NewGatedArray(name string, gate *Timer, counters []Resettable) (*GatedArray, error) {
	if gate == nil {
		return nil, fmt.Errorf("%s: gate is required", name)
	}
	if len(counters) == 0 {
		return nil, fmt.Errorf("%s: at least one counter is required", name)
	}
	return &GatedArray{
		gatedBase: gatedBase{name: name, gate: gate, resetOnTrigger: true},
		counters:  counters,
	}, nil
}

// Counters returns the counters in declaration order.
func (g *GatedArray) Counters() []Resettable {
	return append([]Resettable(nil), g.counters...)
}

// Trigger resets all counters concurrently if enabled, then fires the gate.
func (g *GatedArray) Trigger(ctx context.Context) error {
	if g.ResetOnTrigger() {
		eg, ectx := errgroup.WithContext(ctx)
		for _, c := range g.counters {
			eg.Go(func() error {
				return c.Reset(ectx)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return g.gate.Trigger(ctx)
}
