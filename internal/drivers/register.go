package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nerrad567/beamline-core/internal/devinit"
)

// Type references used in device lists.
const (
	TypeTimer        = "dgg2.Timer"
	TypeCounter      = "sis3820.Counter"
	TypeGatedCounter = "gated.Counter"
	TypeGatedArray   = "gated.Array"
	TypeMotor        = "vm.Motor"
	TypeUndulator    = "undulator.Undulator"
)

// Register adds every driver to registry. Hardware drivers send commands
// through transport.
func Register(registry *devinit.TypeRegistry, transport Transport) error {
	var errs []error

	errs = append(errs, devinit.RegisterFunc(registry, TypeTimer, nil,
		func(_ context.Context, in devinit.BuildInput) (*Timer, error) {
			return NewTimer(in.Name, in.Location, transport)
		}))

	errs = append(errs, devinit.RegisterFunc(registry, TypeCounter, nil,
		func(_ context.Context, in devinit.BuildInput) (*Counter, error) {
			return NewCounter(in.Name, in.Location, transport)
		}))

	errs = append(errs, devinit.RegisterFunc(registry, TypeMotor, nil,
		func(_ context.Context, in devinit.BuildInput) (*Motor, error) {
			return NewMotor(in.Name, in.Location, transport)
		}))

	errs = append(errs, devinit.RegisterFunc(registry, TypeUndulator, []string{"offset"},
		func(_ context.Context, in devinit.BuildInput) (*Undulator, error) {
			offset := 0.0
			if in.Args.Has("offset") {
				v, err := in.Args.Float("offset")
				if err != nil {
					return nil, err
				}
				offset = v
			}
			return NewUndulator(in.Name, in.Location, offset, transport)
		}))

	errs = append(errs, devinit.RegisterFunc(registry, TypeGatedCounter, []string{"gate", "counter"},
		func(_ context.Context, in devinit.BuildInput) (*GatedCounter, error) {
			var private []io.Closer
			gate, ownedGate, err := timerArg(in, "gate", transport)
			if err != nil {
				return nil, err
			}
			if ownedGate {
				private = append(private, gate)
			}
			counter, ownedCounter, err := counterArg(in.Name, in.Args["counter"], "counter", transport)
			if err != nil {
				return nil, err
			}
			if ownedCounter {
				private = append(private, counter.(io.Closer))
			}
			g, err := NewGatedCounter(in.Name, gate, counter)
			if err != nil {
				return nil, err
			}
			for _, c := range private {
				g.own(c)
			}
			return g, nil
		}))

	errs = append(errs, devinit.RegisterFunc(registry, TypeGatedArray, []string{"gate", "counters"},
		func(_ context.Context, in devinit.BuildInput) (*GatedArray, error) {
			var private []io.Closer
			gate, ownedGate, err := timerArg(in, "gate", transport)
			if err != nil {
				return nil, err
			}
			if ownedGate {
				private = append(private, gate)
			}
			raw, ok := in.Args["counters"].([]any)
			if !ok {
				return nil, devinit.ArgumentTypeError{
					Key:      "counters",
					Expected: "list",
					Actual:   fmt.Sprintf("%T", in.Args["counters"]),
				}
			}
			counters := make([]Resettable, len(raw))
			for i, item := range raw {
				c, owned, err := counterArg(in.Name, item, fmt.Sprintf("counters[%d]", i), transport)
				if err != nil {
					return nil, err
				}
				if owned {
					private = append(private, c.(io.Closer))
				}
				counters[i] = c
			}
			g, err := NewGatedArray(in.Name, gate, counters)
			if err != nil {
				return nil, err
			}
			for _, c := range private {
				g.own(c)
			}
			return g, nil
		}))

	return errors.Join(errs...)
}

// timerArg accepts a Timer device or a TRL from which a private timer is
// built. owned reports the private case.
func timerArg(in devinit.BuildInput, key string, transport Transport) (timer *Timer, owned bool, err error) {
	switch v := in.Args[key].(type) {
	case *Timer:
		return v, false, nil
	case string:
		timer, err = NewTimer(in.Name+"_"+key, v, transport)
		return timer, err == nil, err
	case nil:
		return nil, false, fmt.Errorf("%w: %s", devinit.ErrMissingArgument, key)
	default:
		return nil, false, devinit.ArgumentTypeError{Key: key, Expected: "dgg2.Timer or TRL", Actual: fmt.Sprintf("%T", v)}
	}
}

// counterArg accepts a counter device or a TRL from which a private counter
// is built. owned reports the private case.
func counterArg(owner string, value any, key string, transport Transport) (counter Resettable, owned bool, err error) {
	switch v := value.(type) {
	case Resettable:
		return v, false, nil
	case string:
		c, err := NewCounter(owner+"_"+key, v, transport)
		if err != nil {
			return nil, false, err
		}
		return c, true, nil
	case nil:
		return nil, false, fmt.Errorf("%w: %s", devinit.ErrMissingArgument, key)
	default:
		return nil, false, devinit.ArgumentTypeError{Key: key, Expected: "counter or TRL", Actual: fmt.Sprintf("%T", v)}
	}
}
