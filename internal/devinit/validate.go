package devinit

import (
	"errors"
)

// Validate checks the structure of a device table against the namespace it
// will be merged into. It returns every problem found, joined.
func Validate(table Table, namespace Namespace) error {
	var errs []error
	for _, key := range table.Names() {
		spec := table[key]
		switch {
		case spec.Name == "":
			errs = append(errs, MissingNameError{Key: key})
		case spec.Name != key:
			errs = append(errs, NameMismatchError{Key: key, Name: spec.Name})
		}
		if _, exists := namespace[key]; exists {
			errs = append(errs, NameConflictError{Name: key})
		}
	}
	return errors.Join(errs...)
}

// Dependencies returns the device names referenced by a spec's arguments.
func (s Spec) Dependencies() []string {
	return References(s.Args)
}

// DetectCycles reports the first reference cycle among declared devices.
// References to names outside the table are ignored; they are reported later
// as missing dependencies.
func DetectCycles(table Table) error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(table))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return CircularDependencyError{Path: cyclePath(path, name)}
		case done:
			return nil
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range table[name].Dependencies() {
			if _, declared := table[dep]; !declared {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, name := range table.Names() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// cyclePath returns the active path from the first occurrence of name,
// closed with name again.
func cyclePath(path []string, name string) []string {
	for i, n := range path {
		if n == name {
			cycle := append([]string(nil), path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}
