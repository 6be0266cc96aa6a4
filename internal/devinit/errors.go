package devinit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the devinit package.
//
// Typed errors below match ErrInvalidSpec via errors.Is when they describe a
// malformed device table:
//
//	if errors.Is(err, devinit.ErrInvalidSpec) {
//	    // fix the device list
//	}
var (
	// ErrInvalidSpec is matched by every validation failure.
	ErrInvalidSpec = errors.New("devinit: invalid device spec")

	// ErrMissingArgument is returned by Args accessors for absent keys.
	ErrMissingArgument = errors.New("devinit: missing argument")

	// ErrNilDevice is returned when a factory reports success without a device.
	ErrNilDevice = errors.New("devinit: factory returned nil device")

	// ErrNilRegistry is returned when an engine has no type registry.
	ErrNilRegistry = errors.New("devinit: type registry is nil")
)

// NameMismatchError means a table key differs from the spec's declared name.
type NameMismatchError struct {
	Key  string
	Name string
}

func (e NameMismatchError) Error() string {
	return fmt.Sprintf("device key %q must equal its declared name %q", e.Key, e.Name)
}

func (e NameMismatchError) Is(target error) bool { return target == ErrInvalidSpec }

// MissingNameError means a spec has no declared name.
type MissingNameError struct {
	Key string
}

func (e MissingNameError) Error() string {
	return fmt.Sprintf("device %q is missing a 'name' argument", e.Key)
}

func (e MissingNameError) Is(target error) bool { return target == ErrInvalidSpec }

// NameConflictError means a declared name is already present in the target
// namespace.
type NameConflictError struct {
	Name string
}

func (e NameConflictError) Error() string {
	return fmt.Sprintf("device %q already exists in namespace", e.Name)
}

func (e NameConflictError) Is(target error) bool { return target == ErrInvalidSpec }

// CircularDependencyError means the reference graph contains a cycle.
// Path starts and ends with the same device.
type CircularDependencyError struct {
	Path []string
}

func (e CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular device dependency"
	}
	return "circular device dependency: " + strings.Join(e.Path, " -> ")
}

func (e CircularDependencyError) Is(target error) bool { return target == ErrInvalidSpec }

// TypeResolutionError means a spec's type reference is not registered.
type TypeResolutionError struct {
	Name    string
	TypeRef string
}

func (e TypeResolutionError) Error() string {
	return fmt.Sprintf("device %q: driver %q is not registered", e.Name, e.TypeRef)
}

// MissingDependencyError means a reference names a device that is neither
// declared in the table nor present in the namespace.
type MissingDependencyError struct {
	Name      string
	Dependent string
}

func (e MissingDependencyError) Error() string {
	return fmt.Sprintf("%s not found in namespace and is not in the list of devices to be created (required by %s)",
		e.Name, e.Dependent)
}

// UnresolvedDependencyTimeoutError means a declared dependency did not
// complete within the wait budget. Usually a cycle or an upstream failure.
type UnresolvedDependencyTimeoutError struct {
	Name         string
	Dependent    string
	Timeout      time.Duration
	Constructing bool
}

func (e UnresolvedDependencyTimeoutError) Error() string {
	state := "not initialised"
	if e.Constructing {
		state = "still under construction"
	}
	return fmt.Sprintf("%s %s after %v (required by %s); check for circular dependencies",
		e.Name, state, e.Timeout, e.Dependent)
}

// ConstructionError wraps a failure of a device's own constructor, a
// recovered constructor panic, or a violated name post-condition.
type ConstructionError struct {
	Name    string
	TypeRef string
	Err     error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("constructing device %q (%s): %v", e.Name, e.TypeRef, e.Err)
}

func (e ConstructionError) Unwrap() error { return e.Err }

// PassError is returned by Engine.Run when a resolution pass fails after
// construction started. Pending lists the declared devices that were never
// published.
type PassError struct {
	PassID  string
	Err     error
	Pending []string
}

func (e *PassError) Error() string {
	if len(e.Pending) == 0 {
		return fmt.Sprintf("device pass %s failed: %v", e.PassID, e.Err)
	}
	return fmt.Sprintf("device pass %s failed: %v (devices not created: %s)",
		e.PassID, e.Err, strings.Join(e.Pending, ", "))
}

func (e *PassError) Unwrap() error { return e.Err }

// ArgumentTypeError means an argument exists but has an unexpected type.
type ArgumentTypeError struct {
	Key      string
	Expected string
	Actual   string
}

func (e ArgumentTypeError) Error() string {
	return fmt.Sprintf("argument %q: expected %s, got %s", e.Key, e.Expected, e.Actual)
}
