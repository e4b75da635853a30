// Package merge implements the append-only deep merge used to layer profile
// overlays. Values are JSON-like trees: map[string]any, []any, string,
// numbers, booleans and nil.
package merge

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIncompatible is returned when two values at the same key cannot be
// merged, for example a string onto a mapping.
var ErrIncompatible = errors.New("incompatible merge")

// Clone returns a deep copy of v that shares no mutable state with it.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	default:
		return v
	}
}

// Concat flattens its arguments into one new sequence. A bare scalar counts
// as a one-element sequence; nil arguments are skipped.
func Concat(values ...any) []any {
	out := []any{}
	for _, v := range values {
		switch t := v.(type) {
		case nil:
		case []any:
			for _, e := range t {
				out = append(out, Clone(e))
			}
		case []string:
			for _, e := range t {
				out = append(out, e)
			}
		default:
			out = append(out, Clone(v))
		}
	}
	return out
}

// Trees merges overlay b onto base a and returns a new tree. Keys present on
// one side are copied; a string in a is promoted to a sequence and extended
// with b, a sequence in a is concatenated with b and mappings merge
// recursively. Nothing is ever removed.
func Trees(a, b any) (any, error) {
	return trees(a, b, "")
}

func trees(a, b any, path string) (any, error) {
	if a == nil {
		return Clone(b), nil
	}
	if b == nil {
		return Clone(a), nil
	}
	am, ok := a.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: base at %q is %T, not a mapping", ErrIncompatible, pathOrRoot(path), a)
	}
	bm, ok := b.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: overlay at %q is %T, not a mapping", ErrIncompatible, pathOrRoot(path), b)
	}

	out := make(map[string]any, len(am)+len(bm))
	for k, v := range am {
		if bm[k] == nil {
			out[k] = Clone(v)
		}
	}
	// Sorted so the first reported error is deterministic.
	keys := make([]string, 0, len(bm))
	for k := range bm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bv := bm[k]
		av := am[k]
		if av == nil {
			out[k] = Clone(bv)
			continue
		}
		if bv == nil {
			out[k] = Clone(av)
			continue
		}
		merged, err := value(av, bv, join(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}
	return out, nil
}

func value(a, b any, path string) (any, error) {
	switch at := a.(type) {
	case string, []any, []string:
		if _, isMap := b.(map[string]any); isMap {
			return nil, fmt.Errorf("%w: cannot append a mapping to the %T at %q", ErrIncompatible, a, path)
		}
		return Concat(at, b), nil
	case map[string]any:
		return trees(at, b, path)
	default:
		return nil, fmt.Errorf("%w: cannot merge %T onto %T at %q", ErrIncompatible, b, a, path)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "."
	}
	return path
}
