package drivers

import (
	"context"
	"fmt"
)

// Field names on the control system.
const (
	FieldSampleTime = "SampleTime"
	FieldStart      = "Start"
	FieldOffset     = "Offset"
	FieldReset      = "Reset"
	FieldPosition   = "Position"
	FieldStopMove   = "StopMove"
)

// Timer is a DGG2 gate timer.
type Timer struct {
	*hardware
}

// NewTimer creates a timer at location.
func NewTimer(name, location string, transport Transport) (*Timer, error) {
	hw, err := newHardware(name, location, transport)
	if err != nil {
		return nil, err
	}
	return &Timer{hardware: hw}, nil
}

// SetSampleTime sets the gate time in seconds.
func (t *Timer) SetSampleTime(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: sample time %v is negative", ErrInvalidValue, seconds)
	}
	return t.write(ctx, FieldSampleTime, seconds)
}

// Trigger starts one gate.
func (t *Timer) Trigger(ctx context.Context) error {
	return t.send(ctx, FieldStart, nil)
}

// Configure implements device.Configurable.
func (t *Timer) Configure(ctx context.Context, field string, value any) error {
	switch field {
	case FieldSampleTime:
		v, err := toFloat(field, value)
		if err != nil {
			return err
		}
		return t.SetSampleTime(ctx, v)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, field)
	}
}

// Counter is an SIS3820 scaler channel.
type Counter struct {
	*hardware
}

// NewCounter creates a counter at location.
func NewCounter(name, location string, transport Transport) (*Counter, error) {
	hw, err := newHardware(name, location, transport)
	if err != nil {
		return nil, err
	}
	return &Counter{hardware: hw}, nil
}

// Reset clears the counts.
func (c *Counter) Reset(ctx context.Context) error {
	return c.send(ctx, FieldReset, nil)
}

// SetOffset sets the count offset.
func (c *Counter) SetOffset(ctx context.Context, offset float64) error {
	return c.write(ctx, FieldOffset, offset)
}

// Configure implements device.Configurable.
func (c *Counter) Configure(ctx context.Context, field string, value any) error {
	switch field {
	case FieldOffset:
		v, err := toFloat(field, value)
		if err != nil {
			return err
		}
		return c.SetOffset(ctx, v)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, c.name, field)
	}
}

// Motor is a VM motor axis.
type Motor struct {
	*hardware
}

// NewMotor creates a motor at location.
func NewMotor(name, location string, transport Transport) (*Motor, error) {
	hw, err := newHardware(name, location, transport)
	if err != nil {
		return nil, err
	}
	return &Motor{hardware: hw}, nil
}

// Move requests an absolute position.
func (m *Motor) Move(ctx context.Context, position float64) error {
	return m.write(ctx, FieldPosition, position)
}

// Stop halts the axis.
func (m *Motor) Stop(ctx context.Context) error {
	return m.send(ctx, FieldStopMove, nil)
}

// Configure implements device.Configurable.
func (m *Motor) Configure(ctx context.Context, field string, value any) error {
	switch field {
	case FieldPosition:
		v, err := toFloat(field, value)
		if err != nil {
			return err
		}
		return m.Move(ctx, v)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.name, field)
	}
}

// Undulator is an insertion device. Offset is held locally and is not sent
// to the control system.
type Undulator struct {
	*Motor
	offset float64
}

// NewUndulator creates an undulator at location.
func NewUndulator(name, location string, offset float64, transport Transport) (*Undulator, error) {
	m, err := NewMotor(name, location, transport)
	if err != nil {
		return nil, err
	}
	return &Undulator{Motor: m, offset: offset}, nil
}

// Offset returns the configured offset.
func (u *Undulator) Offset() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.offset
}

// Configure implements device.Configurable.
func (u *Undulator) Configure(ctx context.Context, field string, value any) error {
	if field != FieldOffset {
		return u.Motor.Configure(ctx, field, value)
	}
	v, err := toFloat(field, value)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.offset = v
	u.mu.Unlock()
	return nil
}
