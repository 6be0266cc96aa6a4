package devinit

import (
	"fmt"
	"sort"
	"strings"
)

// Reference syntax: "<name>#device".
const (
	RefSeparator = "#"
	RefMarker    = "device"

	refSuffix = RefSeparator + RefMarker
)

// Reserved argument keys. Their values are never treated as references.
const (
	KeyDriver   = "driver"
	KeyURI      = "uri"
	KeyName     = "name"
	KeyMetadata = "md"
)

// IsReserved reports whether key is a reserved argument key.
func IsReserved(key string) bool {
	switch key {
	case KeyDriver, KeyURI, KeyName, KeyMetadata:
		return true
	default:
		return false
	}
}

// Arg is one node of a constructor argument tree.
// It is one of Scalar, List, Map or Ref.
type Arg interface {
	isArg()
}

// Scalar is a literal value.
type Scalar struct {
	Value any
}

// List is an ordered sequence of arguments.
type List []Arg

// Map is a keyed set of arguments.
type Map map[string]Arg

// Ref names another device.
type Ref struct {
	Target string
}

func (Scalar) isArg() {}
func (List) isArg()   {}
func (Map) isArg()    {}
func (Ref) isArg()    {}

// String returns the reference in its token form.
func (r Ref) String() string {
	return r.Target + refSuffix
}

// ParseRef splits a reference token into its target name.
// It reports false for literals, including a bare "#device".
func ParseRef(s string) (string, bool) {
	target, ok := strings.CutSuffix(s, refSuffix)
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// ParseArg converts a decoded YAML or JSON value into an argument tree.
func ParseArg(raw any) Arg {
	switch v := raw.(type) {
	case Arg:
		return v
	case string:
		if target, ok := ParseRef(v); ok {
			return Ref{Target: target}
		}
		return Scalar{Value: v}
	case []any:
		list := make(List, len(v))
		for i, item := range v {
			list[i] = ParseArg(item)
		}
		return list
	case []string:
		list := make(List, len(v))
		for i, item := range v {
			list[i] = ParseArg(item)
		}
		return list
	case map[string]any:
		return ParseMap(v)
	case map[any]any:
		m := make(Map, len(v))
		for key, item := range v {
			m[fmt.Sprint(key)] = ParseArg(item)
		}
		return m
	default:
		return Scalar{Value: raw}
	}
}

// ParseMap converts a decoded keyword-argument map into a Map.
func ParseMap(raw map[string]any) Map {
	m := make(Map, len(raw))
	for key, item := range raw {
		m[key] = ParseArg(item)
	}
	return m
}

// Plain converts an argument tree back to plain values without resolving
// references. References become their token strings.
func Plain(arg Arg) any {
	switch a := arg.(type) {
	case nil:
		return nil
	case Scalar:
		return a.Value
	case Ref:
		return a.String()
	case List:
		out := make([]any, len(a))
		for i, item := range a {
			out[i] = Plain(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(a))
		for key, item := range a {
			out[key] = Plain(item)
		}
		return out
	default:
		return nil
	}
}

// References returns the sorted, de-duplicated device names referenced by an
// argument tree. Values under reserved keys are skipped.
func References(arg Arg) []string {
	seen := make(map[string]struct{})
	collectRefs(arg, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectRefs(arg Arg, seen map[string]struct{}) {
	switch a := arg.(type) {
	case Ref:
		seen[a.Target] = struct{}{}
	case List:
		for _, item := range a {
			collectRefs(item, seen)
		}
	case Map:
		for key, item := range a {
			if IsReserved(key) {
				continue
			}
			collectRefs(item, seen)
		}
	}
}
