package device

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/beamline-core/internal/devinit"
)

// DefaultSettingsTimeout bounds ApplySettings when no timeout is given.
const DefaultSettingsTimeout = 10 * time.Second

// Configurable is implemented by devices that accept field writes.
// Configure returns an error for fields the device does not have.
type Configurable interface {
	devinit.Device
	Configure(ctx context.Context, field string, value any) error
}

// Settings maps device name → field → value.
type Settings map[string]map[string]any

// Devices returns the device names in sorted order.
func (s Settings) Devices() []string {
	return slices.Sorted(maps.Keys(s))
}

// LoadSettings reads a settings file.
//
// The file is a YAML mapping of device name to field writes:
//
//	gate01:
//	  SampleTime: 0.5
//	mot1:
//	  Position: 12.0
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings YAML. An empty document yields empty settings.
func ParseSettings(data []byte) (Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	settings := make(Settings, len(raw))
	for name, v := range raw {
		if v == nil {
			settings[name] = map[string]any{}
			continue
		}
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s must map field names to values, got %T", ErrInvalidSettings, name, v)
		}
		settings[name] = fields
	}
	return settings, nil
}

// ApplySettings writes settings into devices.
//
// Every named device must exist in devices and be Configurable; this is
// checked before anything is written. Devices are configured concurrently,
// each one's fields in sorted order. The first failure cancels the rest.
// A non-positive timeout uses DefaultSettingsTimeout; exceeding it yields
// an error wrapping ErrSettingsTimeout.
func ApplySettings(ctx context.Context, devices devinit.Namespace, settings Settings, timeout time.Duration) error {
	targets := make(map[string]Configurable, len(settings))
	var errs []error
	for _, name := range settings.Devices() {
		dev, ok := devices[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDeviceNotFound, name))
			continue
		}
		c, ok := dev.(Configurable)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotConfigurable, name))
			continue
		}
		targets[name] = c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = DefaultSettingsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range settings.Devices() {
		dev := targets[name]
		fields := settings[name]
		g.Go(func() error {
			for _, field := range slices.Sorted(maps.Keys(fields)) {
				if err := dev.Configure(gctx, field, fields[field]); err != nil {
					return fmt.Errorf("configuring %s.%s: %w", name, field, err)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v: %w", ErrSettingsTimeout, timeout, err)
	}
	return err
}
