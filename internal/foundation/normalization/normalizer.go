package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Normalizer maps loosely formatted user input (case, surrounding space) onto
// a closed set of typed values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string
}

// NewNormalizer creates a normalizer. Keys are lower-cased and trimmed.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	n := &Normalizer[T]{
		values:       make(map[string]T, len(values)),
		defaultValue: defaultValue,
		keys:         make([]string, 0, len(values)),
	}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	slices.Sort(n.keys)
	return n
}

// Normalize returns the value for raw, or the default when raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[clean(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse is Normalize with an error for unknown input. Empty input yields the default.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if clean(raw) == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// Valid reports whether raw names a known value.
func (n *Normalizer[T]) Valid(raw string) bool {
	_, ok := n.values[clean(raw)]
	return ok
}

// Keys returns the accepted spellings in sorted order.
func (n *Normalizer[T]) Keys() []string {
	return slices.Clone(n.keys)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
