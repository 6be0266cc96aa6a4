package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/nerrad567/beamline-core/internal/devinit"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry is the process-wide catalogue of live devices.
//
// Instantiation passes hand their namespaces to Merge. Inventory records
// are cached in memory and written through to the Repository when one is
// set, so records from earlier runs are visible after RefreshCache.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	mu      sync.RWMutex
	live    devinit.Namespace
	records map[string]*Record

	logger Logger
}

// NewRegistry creates an empty registry. repo may be nil for an in-memory
// registry without persistence.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		live:    make(devinit.Namespace),
		records: make(map[string]*Record),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// RefreshCache reloads inventory records from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	records, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]*Record, len(records))
	for i := range records {
		r.records[records[i].Name] = records[i].DeepCopy()
	}

	r.logger.Info("inventory cache refreshed", "count", len(records))
	return nil
}

// Merge adds every device of ns to the live set.
//
// Names already live are not replaced; each one yields an error wrapping
// ErrDeviceExists and the errors are joined. Non-conflicting devices are
// added regardless.
func (r *Registry) Merge(ns devinit.Namespace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	added := 0
	for _, name := range ns.Names() {
		if _, exists := r.live[name]; exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDeviceExists, name))
			continue
		}
		r.live[name] = ns[name]
		added++
	}

	r.logger.Debug("namespace merged", "added", added, "conflicts", len(errs))
	return errors.Join(errs...)
}

// Get returns the live device called name.
func (r *Registry) Get(name string) (devinit.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.live[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return dev, nil
}

// Names returns the live device names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live.Names()
}

// Namespace returns a copy of the live set.
func (r *Registry) Namespace() devinit.Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.live)
}

// RecordDevice stores an inventory record and persists it.
// The cache is updated even when persistence fails.
func (r *Registry) RecordDevice(ctx context.Context, rec Record) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: device name is required", ErrInvalidRecord)
	}

	r.mu.Lock()
	r.records[rec.Name] = rec.DeepCopy()
	r.mu.Unlock()

	if r.repo == nil {
		return nil
	}
	if err := r.repo.SaveDevice(ctx, &rec); err != nil {
		return fmt.Errorf("persisting %s: %w", rec.Name, err)
	}
	return nil
}

// GetRecord returns the inventory record of name.
// The returned record is a deep copy; callers can safely modify it.
func (r *Registry) GetRecord(ctx context.Context, name string) (*Record, error) {
	r.mu.RLock()
	cached, ok := r.records[name]
	r.mu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	if r.repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	rec, err := r.repo.GetDevice(ctx, name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.records[name] = rec.DeepCopy()
	r.mu.Unlock()

	return rec, nil
}

// Records returns all cached inventory records sorted by name.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Sorted(maps.Keys(r.records))
	out := make([]Record, 0, len(names))
	for _, name := range names {
		out = append(out, *r.records[name].DeepCopy())
	}
	return out
}

// RecordPass persists a pass history entry. Without a repository it is a no-op.
func (r *Registry) RecordPass(ctx context.Context, pass PassRecord) error {
	if r.repo == nil {
		return nil
	}
	if err := r.repo.SavePass(ctx, &pass); err != nil {
		return fmt.Errorf("persisting pass %s: %w", pass.ID, err)
	}
	return nil
}

// Close closes every live device that implements io.Closer and empties
// the live set. Errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	live := r.live
	r.live = make(devinit.Namespace)
	r.mu.Unlock()

	var errs []error
	for _, name := range live.Names() {
		if c, ok := live[name].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	Live     int
	Recorded int
	ByType   map[string]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Live:     len(r.live),
		Recorded: len(r.records),
		ByType:   make(map[string]int),
	}
	for _, rec := range r.records {
		stats.ByType[rec.TypeRef]++
	}
	return stats
}
