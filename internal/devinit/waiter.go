package devinit

import (
	"context"
	"time"
)

// Default wait budget for a declared dependency: 10 attempts of 1s.
const (
	DefaultWaitAttempts = 10
	DefaultWaitInterval = time.Second
)

// WaitPolicy bounds how long a device waits for a declared dependency.
// The total budget is Attempts * Interval.
type WaitPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultWaitPolicy returns the default budget.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Attempts: DefaultWaitAttempts,
		Interval: DefaultWaitInterval,
	}
}

// Timeout returns the total wait budget.
func (p WaitPolicy) Timeout() time.Duration {
	return time.Duration(p.Attempts) * p.Interval
}

func (p WaitPolicy) normalised() WaitPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultWaitAttempts
	}
	if p.Interval <= 0 {
		p.Interval = DefaultWaitInterval
	}
	return p
}

// await returns the device called name, waiting for it if it is declared but
// not yet published. dependent is the device whose arguments need it.
func (rc *resolution) await(ctx context.Context, dependent, name string) (Device, error) {
	dev, found, wake, err := rc.check(dependent, name)
	if found || err != nil {
		return dev, err
	}

	rc.logger.Debug("waiting for dependency", "device", dependent, "dependency", name)

	timeout := rc.policy.Timeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			dev, found, _, err = rc.check(dependent, name)
			if found || err != nil {
				return dev, err
			}
			return nil, UnresolvedDependencyTimeoutError{
				Name:         name,
				Dependent:    dependent,
				Timeout:      timeout,
				Constructing: rc.isConstructing(name),
			}
		}

		dev, found, wake, err = rc.check(dependent, name)
		if found || err != nil {
			return dev, err
		}
	}
}

// check looks name up under the lock. When name is still pending it returns
// the channel that will be closed by the next publish.
func (rc *resolution) check(dependent, name string) (Device, bool, <-chan struct{}, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if dev, ok := rc.namespace[name]; ok {
		return dev, true, nil, nil
	}
	if _, ok := rc.pending[name]; ok {
		return nil, false, rc.published, nil
	}
	return nil, false, nil, MissingDependencyError{Name: name, Dependent: dependent}
}

func (rc *resolution) isConstructing(name string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	_, ok := rc.constructing[name]
	return ok
}
