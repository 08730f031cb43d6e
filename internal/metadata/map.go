package metadata

import (
	"sort"
	"strings"
)

// ErrorKey is reserved for an upstream failure carried in map form.
const ErrorKey = "error"

// Map is a flat set of metadata fields keyed by the names the decoder emits.
type Map map[string]Value

// Keys returns the field names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable so this is sufficient.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	cp := make(Map, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Equal reports whether both maps carry the same keys and values.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// ErrorMessage reports the reserved error entry when present.
func (m Map) ErrorMessage() (string, bool) {
	v, ok := m[ErrorKey]
	if !ok {
		return "", false
	}
	if s, isString := v.AsString(); isString {
		return s, true
	}
	return strings.TrimSpace(v.Text()), true
}

// ErrorMap builds the map form of an extraction failure.
func ErrorMap(message string) Map {
	return Map{ErrorKey: String(message)}
}

// FromAnyMap converts a JSON-shaped Go map.
func FromAnyMap(raw map[string]any) Map {
	m := make(Map, len(raw))
	for k, v := range raw {
		m[k] = FromAny(v)
	}
	return m
}
