package device

import (
	"maps"
	"slices"
	"time"
)

// Record is the inventory entry for one created device.
type Record struct {
	Name      string
	TypeRef   string
	Location  string
	Metadata  map[string]any
	PassID    string
	Duration  time.Duration
	CreatedAt time.Time
}

// DeepCopy returns a copy whose metadata map is not shared.
// Nested metadata values are shared.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = maps.Clone(r.Metadata)
	}
	return &cp
}

// PassRecord is the history entry for one instantiation pass.
type PassRecord struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Declared  int
	Completed int
	Pending   []string

	// Error is empty for a successful pass.
	Error string
}

// Succeeded reports whether the pass created every declared device.
func (p *PassRecord) Succeeded() bool {
	return p.Error == "" && len(p.Pending) == 0
}

// DeepCopy returns a copy whose pending list is not shared.
func (p *PassRecord) DeepCopy() *PassRecord {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Pending = slices.Clone(p.Pending)
	return &cp
}
