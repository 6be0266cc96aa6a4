package devinit

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
)

// construct builds one device from its resolved arguments inside a
// construction scope. The scope marker is cleared on every exit path.
func (rc *resolution) construct(ctx context.Context, spec Spec, f Factory, resolved Args) (dev Device, err error) {
	rc.enter(spec.Name)
	defer rc.exit(spec.Name)

	defer func() {
		if r := recover(); r != nil {
			rc.logger.Error("device factory panicked",
				"device", spec.Name,
				"type", spec.TypeRef,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			dev = nil
			err = ConstructionError{Name: spec.Name, TypeRef: spec.TypeRef, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	in := BuildInput{
		Name:     spec.Name,
		Location: spec.Location,
		Args:     filterArgs(f, resolved),
	}

	dev, err = f.New(ctx, in)
	if err != nil {
		return nil, ConstructionError{Name: spec.Name, TypeRef: spec.TypeRef, Err: err}
	}
	if isNilDevice(dev) {
		return nil, ConstructionError{Name: spec.Name, TypeRef: spec.TypeRef, Err: ErrNilDevice}
	}
	if got := dev.Name(); got != spec.Name {
		return nil, ConstructionError{
			Name:    spec.Name,
			TypeRef: spec.TypeRef,
			Err:     NameMismatchError{Key: spec.Name, Name: got},
		}
	}

	if md, ok := resolved[KeyMetadata].(map[string]any); ok && !f.accepts(KeyMetadata) {
		if setter, ok := dev.(MetadataSetter); ok {
			setter.SetMetadata(md)
		}
	}

	if c, ok := dev.(Connector); ok {
		if err := c.Connect(ctx); err != nil {
			return nil, ConstructionError{Name: spec.Name, TypeRef: spec.TypeRef, Err: fmt.Errorf("connect: %w", err)}
		}
	}

	return dev, nil
}

// filterArgs keeps only the arguments listed in the factory's Params.
func filterArgs(f Factory, resolved Args) Args {
	out := make(Args, len(f.Params))
	for _, key := range f.Params {
		if v, ok := resolved[key]; ok {
			out[key] = v
		}
	}
	return out
}

// isNilDevice also reports interfaces holding a nil pointer.
func isNilDevice(dev Device) bool {
	if dev == nil {
		return true
	}
	v := reflect.ValueOf(dev)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
