// Package devicelist loads device tables from YAML device lists.
//
// A device list file holds one or more named sections. Each section maps
// device names to a driver, an optional control-system URI and the keyword
// arguments for the driver:
//
//	devices:
//	  gate01:
//	    driver: dgg2.Timer
//	    uri: "tango://hasep23oh:10000/p23/dgg2/eh.01"
//	    kwargs:
//	      name: gate01
//	  gated01:
//	    driver: gated.Counter
//	    kwargs:
//	      name: gated01
//	      gate: "gate01#device"
//	      counter: "counter01#device"
package devicelist

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/beamline-core/internal/devinit"
)

// DefaultSection is the top-level key read when no section is given.
const DefaultSection = "devices"

var (
	// ErrSectionNotFound is returned when the requested section is absent or empty.
	ErrSectionNotFound = errors.New("devicelist: section not found")

	// ErrInvalidSection is returned when a section key has characters other
	// than lowercase letters, digits and underscores.
	ErrInvalidSection = errors.New("devicelist: invalid section key")

	// ErrMissingDriver is returned when an entry has no driver.
	ErrMissingDriver = errors.New("devicelist: missing driver")
)

var sectionPattern = regexp.MustCompile(`^[a-z0-9_]*$`)

// Entry is one device in a device list file.
type Entry struct {
	Driver string         `yaml:"driver"`
	URI    string         `yaml:"uri"`
	Kwargs map[string]any `yaml:"kwargs"`
}

// Load reads path and returns the device table stored under section.
// An empty section reads DefaultSection.
func Load(path, section string) (devinit.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device list: %w", err)
	}

	table, err := Parse(data, section)
	if err != nil {
		return nil, fmt.Errorf("device list %s: %w", path, err)
	}
	return table, nil
}

// Parse decodes a device list document.
func Parse(data []byte, section string) (devinit.Table, error) {
	key, err := SanitizeSection(section)
	if err != nil {
		return nil, err
	}

	var doc map[string]map[string]Entry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing device list: %w", err)
	}

	entries, ok := doc[key]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, key)
	}

	table := make(devinit.Table, len(entries))
	for key, entry := range entries {
		spec, err := entry.Spec()
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", key, err)
		}
		table[key] = spec
	}
	return table, nil
}

// Spec converts an entry into a device spec. The declared name comes from
// kwargs.name; a missing name is left empty for validation to report.
func (e Entry) Spec() (devinit.Spec, error) {
	if e.Driver == "" {
		return devinit.Spec{}, ErrMissingDriver
	}

	var name string
	if raw, ok := e.Kwargs[devinit.KeyName]; ok {
		s, ok := raw.(string)
		if !ok {
			return devinit.Spec{}, fmt.Errorf("kwargs.name must be a string, got %T", raw)
		}
		name = s
	}

	kwargs := e.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	return devinit.Spec{
		Name:     name,
		TypeRef:  e.Driver,
		Location: e.URI,
		Args:     devinit.ParseMap(kwargs),
	}, nil
}

// SanitizeSection lowercases key and checks its characters.
func SanitizeSection(key string) (string, error) {
	if key == "" {
		return DefaultSection, nil
	}
	key = strings.ToLower(key)
	if !sectionPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q (use letters, digits and underscores)", ErrInvalidSection, key)
	}
	return key, nil
}
