package drivers

import "errors"

var (
	// ErrNoLocation is returned when a hardware device has no control-system address.
	ErrNoLocation = errors.New("drivers: device has no location")

	// ErrNoTransport is returned when a hardware device is built without a transport.
	ErrNoTransport = errors.New("drivers: no transport")

	// ErrTransportDown is returned by Connect when the transport reports it is
	// not connected.
	ErrTransportDown = errors.New("drivers: transport not connected")

	// ErrClosed is returned by commands sent to a closed device.
	ErrClosed = errors.New("drivers: device closed")

	// ErrUnknownField is returned by Configure for fields the device does not have.
	ErrUnknownField = errors.New("drivers: unknown field")

	// ErrInvalidValue is returned by Configure when a value has the wrong type.
	ErrInvalidValue = errors.New("drivers: invalid value")
)
