package device

import (
	"context"
	"time"

	"github.com/nerrad567/beamline-core/internal/devinit"
)

// Inventory records every device a pass creates, and the pass itself, in a
// Registry. It implements devinit.Observer.
//
// Persistence failures are logged, not returned: the inventory is a record
// of the pass and never aborts it.
type Inventory struct {
	registry *Registry
	logger   Logger
}

// NewInventory returns an observer writing to registry.
func NewInventory(registry *Registry, logger Logger) *Inventory {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Inventory{registry: registry, logger: logger}
}

// DeviceCreated implements devinit.Observer.
func (inv *Inventory) DeviceCreated(ctx context.Context, ev devinit.CreatedEvent) {
	rec := Record{
		Name:      ev.Name,
		TypeRef:   ev.TypeRef,
		Location:  ev.Location,
		Metadata:  ev.Metadata,
		PassID:    ev.PassID,
		Duration:  ev.Duration,
		CreatedAt: time.Now().UTC(),
	}
	// A later failure in the pass cancels ctx; the device is published
	// already and must still reach the inventory.
	if err := inv.registry.RecordDevice(context.WithoutCancel(ctx), rec); err != nil {
		inv.logger.Warn("inventory write failed", "device", ev.Name, "error", err)
	}
}

// PassFinished implements devinit.Observer.
func (inv *Inventory) PassFinished(ctx context.Context, report devinit.Report) {
	pass := PassRecord{
		ID:        report.PassID,
		StartedAt: report.Started,
		Duration:  report.Duration,
		Declared:  len(report.Declared),
		Completed: len(report.Completed),
		Pending:   report.Pending,
	}
	if report.Err != nil {
		pass.Error = report.Err.Error()
	}

	// The pass context may already be cancelled by a failure.
	if err := inv.registry.RecordPass(context.WithoutCancel(ctx), pass); err != nil {
		inv.logger.Warn("pass history write failed", "pass_id", report.PassID, "error", err)
	}
}
