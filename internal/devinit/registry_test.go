package devinit

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestTypeRegistry_Register(t *testing.T) {
	build := func(context.Context, BuildInput) (Device, error) { return &fakeDevice{}, nil }

	tests := []struct {
		name    string
		factory Factory
		wantErr bool
	}{
		{"valid", Factory{TypeRef: "dgg2.Timer", New: build}, false},
		{"empty type ref", Factory{New: build}, true},
		{"nil build func", Factory{TypeRef: "dgg2.Timer"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTypeRegistry()
			if err := r.Register(tt.factory); (err != nil) != tt.wantErr {
				t.Errorf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTypeRegistry_Duplicate(t *testing.T) {
	r := NewTypeRegistry()
	f := Factory{TypeRef: "dgg2.Timer", New: func(context.Context, BuildInput) (Device, error) { return nil, nil }}

	if err := r.Register(f); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(f); err == nil {
		t.Error("second Register() error = nil, want duplicate error")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister did not panic on duplicate")
		}
	}()
	r.MustRegister(f)
}

func TestTypeRegistry_LookupAndTypeRefs(t *testing.T) {
	r := NewTypeRegistry()
	params := []string{"gate"}
	for _, ref := range []string{"sis3820.Counter", "dgg2.Timer"} {
		r.MustRegister(Factory{TypeRef: ref, Params: params, New: func(context.Context, BuildInput) (Device, error) { return nil, nil }})
	}
	params[0] = "mutated"

	if got := r.TypeRefs(); !reflect.DeepEqual(got, []string{"dgg2.Timer", "sis3820.Counter"}) {
		t.Errorf("TypeRefs() = %v", got)
	}

	f, ok := r.Lookup("dgg2.Timer")
	if !ok {
		t.Fatal("Lookup(dgg2.Timer) not found")
	}
	if !f.accepts("gate") || f.accepts("mutated") {
		t.Errorf("Params = %v, want a copy of [gate]", f.Params)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) found")
	}
}

func TestRegisterFunc_NilRegistry(t *testing.T) {
	err := RegisterFunc(nil, "x", nil, func(context.Context, BuildInput) (*fakeDevice, error) { return nil, nil })
	if !errors.Is(err, ErrNilRegistry) {
		t.Errorf("error = %v, want ErrNilRegistry", err)
	}
}

func TestArgs_Accessors(t *testing.T) {
	gate := &fakeDevice{name: "gate"}
	args := Args{
		"label":    "eh1",
		"offset":   2,
		"enabled":  true,
		"gate":     gate,
		"counters": []any{gate, gate},
		"mixed":    []any{gate, "x"},
		"cfg":      map[string]any{"k": "v"},
	}

	if s, err := args.String("label"); err != nil || s != "eh1" {
		t.Errorf("String(label) = %q, %v", s, err)
	}
	if f, err := args.Float("offset"); err != nil || f != 2 {
		t.Errorf("Float(offset) = %v, %v", f, err)
	}
	if b, err := args.Bool("enabled"); err != nil || !b {
		t.Errorf("Bool(enabled) = %v, %v", b, err)
	}
	if m, err := args.Map("cfg"); err != nil || m["k"] != "v" {
		t.Errorf("Map(cfg) = %v, %v", m, err)
	}
	if d, err := args.Device("gate"); err != nil || d != Device(gate) {
		t.Errorf("Device(gate) = %v, %v", d, err)
	}
	if d, err := DeviceAs[*fakeDevice](args, "gate"); err != nil || d != gate {
		t.Errorf("DeviceAs(gate) = %v, %v", d, err)
	}
	if ds, err := args.Devices("counters"); err != nil || len(ds) != 2 {
		t.Errorf("Devices(counters) = %v, %v", ds, err)
	}

	if _, err := args.String("missing"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("String(missing) error = %v, want ErrMissingArgument", err)
	}

	var typeErr ArgumentTypeError
	if _, err := args.Float("label"); !errors.As(err, &typeErr) {
		t.Errorf("Float(label) error = %v, want ArgumentTypeError", err)
	}
	if _, err := args.Devices("mixed"); !errors.As(err, &typeErr) || typeErr.Key != "mixed[1]" {
		t.Errorf("Devices(mixed) error = %v, want ArgumentTypeError at mixed[1]", err)
	}
	if _, err := DeviceAs[*connectingDevice](args, "gate"); !errors.As(err, &typeErr) {
		t.Errorf("DeviceAs[*connectingDevice] error = %v, want ArgumentTypeError", err)
	}
}
