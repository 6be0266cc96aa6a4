package devinit

import (
	"sort"
	"sync"
)

// resolution is the shared state of one resolution pass.
//
// Every read and write of namespace, pending and constructing happens under
// mu. published is closed and replaced each time a device is published so
// that waiters blocked on the previous channel wake up and re-check.
type resolution struct {
	mu           sync.Mutex
	namespace    Namespace
	pending      map[string]struct{}
	constructing map[string]struct{}
	published    chan struct{}

	policy WaitPolicy
	logger Logger
}

func newResolution(namespace Namespace, policy WaitPolicy, logger Logger) *resolution {
	return &resolution{
		namespace:    namespace,
		pending:      make(map[string]struct{}),
		constructing: make(map[string]struct{}),
		published:    make(chan struct{}),
		policy:       policy,
		logger:       logger,
	}
}

// seed marks every declared name as pending.
func (rc *resolution) seed(names []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, name := range names {
		rc.pending[name] = struct{}{}
	}
}

// publish installs dev under name and wakes all waiters.
func (rc *resolution) publish(name string, dev Device) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.namespace[name]; exists {
		return NameConflictError{Name: name}
	}
	rc.namespace[name] = dev
	delete(rc.pending, name)

	close(rc.published)
	rc.published = make(chan struct{})
	return nil
}

func (rc *resolution) enter(name string) {
	rc.mu.Lock()
	rc.constructing[name] = struct{}{}
	rc.mu.Unlock()
}

func (rc *resolution) exit(name string) {
	rc.mu.Lock()
	delete(rc.constructing, name)
	rc.mu.Unlock()
}

// pendingNames returns the names that have not been published, sorted.
func (rc *resolution) pendingNames() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return sortedKeys(rc.pending)
}

// completed returns the published devices among names.
func (rc *resolution) completed(names []string) Namespace {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make(Namespace, len(names))
	for _, name := range names {
		if dev, ok := rc.namespace[name]; ok {
			out[name] = dev
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
