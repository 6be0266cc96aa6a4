package devinit

import (
	"context"
	"sort"
)

// Device is a constructed entity. Name must return the declared spec name.
type Device interface {
	Name() string
}

// Connector is implemented by devices that connect to the control system
// when their construction scope closes.
type Connector interface {
	Connect(ctx context.Context) error
}

// MetadataSetter is implemented by devices that accept free-form metadata
// after construction. It is used when a driver does not list "md" among its
// parameters.
type MetadataSetter interface {
	SetMetadata(md map[string]any)
}

// Spec declares one device.
type Spec struct {
	// Name is the declared device name. It must equal the table key.
	Name string

	// TypeRef selects the factory in the TypeRegistry (e.g. "dgg2.Timer").
	TypeRef string

	// Location is the control-system address (Tango TRL, EPICS prefix).
	// Empty when the device has none.
	Location string

	// Args holds the keyword arguments for the factory.
	Args Map
}

// Table maps device names to their specs.
type Table map[string]Spec

// Names returns the table keys in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Namespace maps device names to constructed devices.
type Namespace map[string]Device

// Names returns the namespace keys in sorted order.
func (n Namespace) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
