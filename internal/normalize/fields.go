// Package normalize maps raw backend payloads onto view-models.
//
// Every function is pure and tolerant: missing keys, alternate field names
// and wrongly typed values fall back to documented defaults instead of
// failing. Raw payloads are the result of decoding JSON into an any.
package normalize

import (
	"strings"

	"github.com/spf13/cast"
)

// object returns raw as a JSON object, or nil.
func object(raw any) map[string]any {
	m, _ := raw.(map[string]any)
	return m
}

// list returns raw as a JSON array. A wrapper object is unwrapped through
// the first of keys that holds an array.
func list(raw any, keys ...string) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		for _, k := range keys {
			if inner, ok := v[k].([]any); ok {
				return inner
			}
		}
	}
	return nil
}

// lookup returns the first present, non-null value among keys.
func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, keys ...string) (string, bool) {
	v, ok := lookup(m, keys...)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func floatField(m map[string]any, keys ...string) (float64, bool) {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// uintField accepts non-negative numbers; fractions are truncated.
func uintField(m map[string]any, keys ...string) (uint64, bool) {
	f, ok := floatField(m, keys...)
	if !ok || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

func intField(m map[string]any, keys ...string) (int, bool) {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0, false
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func stringList(m map[string]any, keys ...string) ([]string, bool) {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := cast.ToStringE(item)
		if err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, true
}

func floatPtr(m map[string]any, keys ...string) *float64 {
	f, ok := floatField(m, keys...)
	if !ok {
		return nil
	}
	return &f
}

func stringPtr(m map[string]any, keys ...string) *string {
	s, ok := stringField(m, keys...)
	if !ok {
		return nil
	}
	return &s
}

func uintPtr(m map[string]any, keys ...string) *uint64 {
	u, ok := uintField(m, keys...)
	if !ok {
		return nil
	}
	return &u
}
