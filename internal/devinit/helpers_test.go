package devinit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const testType = "test.Device"

// fastPolicy keeps timeout tests short: 5 x 20ms.
var fastPolicy = WaitPolicy{Attempts: 5, Interval: 20 * time.Millisecond}

// fakeDevice records the arguments it was built with.
type fakeDevice struct {
	name      string
	location  string
	args      Args
	md        map[string]any
	connected bool
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) SetMetadata(md map[string]any) { d.md = md }

// connectingDevice implements Connector.
type connectingDevice struct {
	fakeDevice
	connectErr error
}

func (d *connectingDevice) Connect(context.Context) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

// buildCounter counts factory invocations per device name.
type buildCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newBuildCounter() *buildCounter {
	return &buildCounter{calls: make(map[string]int)}
}

func (c *buildCounter) inc(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *buildCounter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// newTestRegistry registers test.Device, which accepts dep, items, x and cfg.
func newTestRegistry(t *testing.T, counter *buildCounter) *TypeRegistry {
	t.Helper()

	r := NewTypeRegistry()
	err := RegisterFunc(r, testType, []string{"dep", "items", "x", "cfg"},
		func(_ context.Context, in BuildInput) (*fakeDevice, error) {
			if counter != nil {
				counter.inc(in.Name)
			}
			return &fakeDevice{name: in.Name, location: in.Location, args: in.Args}, nil
		})
	if err != nil {
		t.Fatalf("RegisterFunc() error = %v", err)
	}
	return r
}

// spec builds a test.Device spec from raw keyword arguments.
func spec(name string, args map[string]any) Spec {
	return Spec{Name: name, TypeRef: testType, Args: ParseMap(args)}
}

func mustFake(t *testing.T, ns Namespace, name string) *fakeDevice {
	t.Helper()
	dev, ok := ns[name]
	if !ok {
		t.Fatalf("device %q missing from namespace %v", name, ns.Names())
	}
	fd, ok := dev.(*fakeDevice)
	if !ok {
		t.Fatalf("device %q has type %T, want *fakeDevice", name, dev)
	}
	return fd
}

func failingFactory(typeRef string, err error) Factory {
	return Factory{
		TypeRef: typeRef,
		New: func(context.Context, BuildInput) (Device, error) {
			return nil, err
		},
	}
}

var errBoom = errors.New("boom")
