package devinit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CreatedEvent describes one device published during a pass.
type CreatedEvent struct {
	PassID   string
	Name     string
	TypeRef  string
	Location string
	Metadata map[string]any
	Device   Device
	Duration time.Duration
}

// Report summarises a finished pass.
type Report struct {
	PassID    string
	Started   time.Time
	Duration  time.Duration
	Declared  []string
	Completed []string
	Pending   []string
	Err       error
}

// Success reports whether every declared device was created.
func (r Report) Success() bool {
	return r.Err == nil && len(r.Pending) == 0
}

// Observer receives pass lifecycle events. Calls for one pass may arrive from
// several goroutines; implementations must be safe for concurrent use.
type Observer interface {
	DeviceCreated(ctx context.Context, ev CreatedEvent)
	PassFinished(ctx context.Context, report Report)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWaitPolicy sets the dependency wait budget.
func WithWaitPolicy(p WaitPolicy) Option {
	return func(e *Engine) { e.policy = p.normalised() }
}

// WithCycleDetection enables the reference cycle check before construction.
// When disabled, cycles surface as UnresolvedDependencyTimeoutError.
func WithCycleDetection(enabled bool) Option {
	return func(e *Engine) { e.detectCycles = enabled }
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// Engine runs resolution passes over device tables.
//
// Thread Safety: Run is safe for concurrent use. Each call owns its own
// resolution context; concurrent calls must not share a namespace map.
type Engine struct {
	registry     *TypeRegistry
	policy       WaitPolicy
	detectCycles bool

	mu        sync.RWMutex
	logger    Logger
	observers []Observer
}

// NewEngine creates an engine that looks drivers up in registry.
func NewEngine(registry *TypeRegistry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		policy:   DefaultWaitPolicy(),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.mu.Lock()
	e.logger = logger
	e.mu.Unlock()
}

// AddObserver registers an observer for subsequent passes.
func (e *Engine) AddObserver(o Observer) {
	if o == nil {
		return
	}
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// WaitPolicy returns the engine's dependency wait budget.
func (e *Engine) WaitPolicy() WaitPolicy {
	return e.policy
}

// Run constructs every device of table and publishes it into namespace.
//
// Parameters:
//   - ctx: Cancels the pass; also passed to factories and Connect
//   - table: Device specs keyed by declared name
//   - namespace: Target namespace; devices are added as they complete. A nil
//     namespace is replaced by a fresh one.
//
// Returns:
//   - Namespace: the devices of table that were created, keyed by name
//   - error: nil on success, or:
//   - a validation error matching ErrInvalidSpec (nothing constructed)
//   - TypeResolutionError (nothing constructed)
//   - *PassError wrapping MissingDependencyError,
//     UnresolvedDependencyTimeoutError, ConstructionError or ctx.Err()
func (e *Engine) Run(ctx context.Context, table Table, namespace Namespace) (Namespace, error) {
	if e.registry == nil {
		return nil, ErrNilRegistry
	}
	if namespace == nil {
		namespace = make(Namespace)
	}

	e.mu.RLock()
	logger := e.logger
	observers := append([]Observer(nil), e.observers...)
	e.mu.RUnlock()

	if err := Validate(table, namespace); err != nil {
		return nil, err
	}
	if e.detectCycles {
		if err := DetectCycles(table); err != nil {
			return nil, err
		}
	}

	names := table.Names()
	factories := make(map[string]Factory, len(names))
	for _, name := range names {
		spec := table[name]
		f, ok := e.registry.Lookup(spec.TypeRef)
		if !ok {
			return nil, TypeResolutionError{Name: name, TypeRef: spec.TypeRef}
		}
		factories[name] = f
	}

	passID := uuid.New().String()
	started := time.Now()
	rc := newResolution(namespace, e.policy, logger)
	rc.seed(names)

	logger.Info("creating devices", "pass_id", passID, "count", len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		spec := table[name]
		f := factories[name]
		g.Go(func() error {
			return e.build(gctx, rc, passID, spec, f, observers)
		})
	}
	runErr := g.Wait()

	created := rc.completed(names)
	report := Report{
		PassID:    passID,
		Started:   started,
		Duration:  time.Since(started),
		Declared:  names,
		Completed: created.Names(),
		Pending:   rc.pendingNames(),
	}

	if runErr == nil && len(report.Pending) == 0 {
		logger.Info("all startup devices created", "pass_id", passID, "count", len(names), "duration", report.Duration)
	} else {
		if runErr == nil {
			runErr = errors.New("pass finished with devices still pending")
		}
		runErr = &PassError{PassID: passID, Err: runErr, Pending: report.Pending}
		logger.Error("devices not created", "pass_id", passID, "pending", report.Pending, "error", runErr)
	}
	report.Err = runErr

	for _, o := range observers {
		o.PassFinished(ctx, report)
	}

	return created, runErr
}

// build runs one spec through argument resolution, construction and publish.
func (e *Engine) build(ctx context.Context, rc *resolution, passID string, spec Spec, f Factory, observers []Observer) error {
	started := time.Now()

	resolved, err := rc.resolveArgs(ctx, spec.Name, spec.Args)
	if err != nil {
		return err
	}

	dev, err := rc.construct(ctx, spec, f, resolved)
	if err != nil {
		return err
	}

	if err := rc.publish(spec.Name, dev); err != nil {
		return err
	}

	ev := CreatedEvent{
		PassID:   passID,
		Name:     spec.Name,
		TypeRef:  spec.TypeRef,
		Location: spec.Location,
		Device:   dev,
		Duration: time.Since(started),
	}
	if md, ok := resolved[KeyMetadata].(map[string]any); ok {
		ev.Metadata = md
	}
	rc.logger.Debug("device created", "device", spec.Name, "type", spec.TypeRef, "duration", ev.Duration)
	for _, o := range observers {
		o.DeviceCreated(ctx, ev)
	}
	return nil
}

// CreateDevices runs a single pass with a fresh engine.
func CreateDevices(ctx context.Context, table Table, namespace Namespace, registry *TypeRegistry, opts ...Option) (Namespace, error) {
	return NewEngine(registry, opts...).Run(ctx, table, namespace)
}
