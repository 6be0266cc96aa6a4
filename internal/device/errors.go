package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device name does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when merging a device whose name is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrPassNotFound is returned when a pass ID has no history entry.
	ErrPassNotFound = errors.New("device: pass not found")

	// ErrPassExists is returned when saving a pass ID twice.
	ErrPassExists = errors.New("device: pass already recorded")

	// ErrInvalidRecord is returned when a record lacks a name or ID.
	ErrInvalidRecord = errors.New("device: invalid record")

	// ErrNotConfigurable is returned when settings target a device without Configure.
	ErrNotConfigurable = errors.New("device: not configurable")

	// ErrInvalidSettings is returned when a settings file is malformed.
	ErrInvalidSettings = errors.New("device: invalid settings")

	// ErrSettingsTimeout is returned when settings were not applied in time.
	ErrSettingsTimeout = errors.New("device: settings timed out")
)
