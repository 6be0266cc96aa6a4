package devinit

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// BuildFunc constructs a device from resolved inputs.
type BuildFunc func(ctx context.Context, in BuildInput) (Device, error)

// Factory describes how to build one driver type.
type Factory struct {
	// TypeRef is the key used by specs (e.g. "sis3820.Counter").
	TypeRef string

	// Params is the allow-list of argument keys passed to New.
	// Other resolved arguments are dropped.
	Params []string

	// New builds the device. It must be provided.
	New BuildFunc
}

func (f Factory) accepts(key string) bool {
	for _, p := range f.Params {
		if p == key {
			return true
		}
	}
	return false
}

// BuildInput is passed to a factory.
type BuildInput struct {
	Name     string
	Location string
	Args     Args
}

// TypeRegistry maps type references to factories.
// It is safe for concurrent use.
type TypeRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory. Type references must be unique.
func (r *TypeRegistry) Register(f Factory) error {
	if r == nil {
		return ErrNilRegistry
	}
	if f.TypeRef == "" {
		return fmt.Errorf("register driver: type reference is empty")
	}
	if f.New == nil {
		return fmt.Errorf("register driver %s: build func is nil", f.TypeRef)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[f.TypeRef]; exists {
		return fmt.Errorf("register driver %s: already registered", f.TypeRef)
	}
	f.Params = append([]string(nil), f.Params...)
	r.factories[f.TypeRef] = f
	return nil
}

// MustRegister panics on registration error; intended for bootstrap code paths.
func (r *TypeRegistry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// RegisterFunc registers a typed constructor.
func RegisterFunc[T Device](r *TypeRegistry, typeRef string, params []string, build func(ctx context.Context, in BuildInput) (T, error)) error {
	if build == nil {
		return fmt.Errorf("register driver %s: build func is nil", typeRef)
	}
	return r.Register(Factory{
		TypeRef: typeRef,
		Params:  params,
		New: func(ctx context.Context, in BuildInput) (Device, error) {
			dev, err := build(ctx, in)
			if err != nil {
				return nil, err
			}
			if isNilDevice(dev) {
				return nil, ErrNilDevice
			}
			return dev, nil
		},
	})
}

// Lookup returns the factory registered for typeRef.
func (r *TypeRegistry) Lookup(typeRef string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typeRef]
	return f, ok
}

// TypeRefs returns all registered type references, sorted.
func (r *TypeRegistry) TypeRefs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.factories))
	for ref := range r.factories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Args holds resolved keyword arguments. References have been replaced with
// devices; lists and maps are []any and map[string]any.
type Args map[string]any

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns a string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", ArgumentTypeError{Key: key, Expected: "string", Actual: fmt.Sprintf("%T", v)}
	}
	return s, nil
}

// Float returns a numeric argument as float64.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, ArgumentTypeError{Key: key, Expected: "number", Actual: fmt.Sprintf("%T", v)}
	}
}

// Bool returns a boolean argument.
func (a Args) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, ArgumentTypeError{Key: key, Expected: "bool", Actual: fmt.Sprintf("%T", v)}
	}
	return b, nil
}

// Map returns a map argument.
func (a Args) Map(key string) (map[string]any, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ArgumentTypeError{Key: key, Expected: "map", Actual: fmt.Sprintf("%T", v)}
	}
	return m, nil
}

// Device returns a device argument.
func (a Args) Device(key string) (Device, error) {
	return DeviceAs[Device](a, key)
}

// Devices returns a list argument whose elements are all devices.
func (a Args) Devices(key string) ([]Device, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, ArgumentTypeError{Key: key, Expected: "list of devices", Actual: fmt.Sprintf("%T", v)}
	}
	devices := make([]Device, len(items))
	for i, item := range items {
		dev, ok := item.(Device)
		if !ok {
			return nil, ArgumentTypeError{
				Key:      fmt.Sprintf("%s[%d]", key, i),
				Expected: "device",
				Actual:   fmt.Sprintf("%T", item),
			}
		}
		devices[i] = dev
	}
	return devices, nil
}

// DeviceAs returns a device argument asserted to T.
func DeviceAs[T any](a Args, key string) (T, error) {
	var zero T
	v, ok := a[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, ArgumentTypeError{
			Key:      key,
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Actual:   fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}
