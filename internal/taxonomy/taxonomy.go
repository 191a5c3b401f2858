// Package taxonomy evaluates membership tests against the nested
// systems/subsystems/components classification object (components_json).
package taxonomy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PathSpec is a filter over a taxonomy object: a mapping from category name
// (e.g. "systems") to candidate values. A row matches when, for any key
// whose value is a non-empty list, the row's array under that key contains
// at least one of the candidates.
//
// An empty PathSpec matches nothing: there are no per-key conditions to OR.
// Callers wanting "no filter" should omit the spec entirely.
type PathSpec map[string]any

// Entry is one usable key of a PathSpec: a category name with a non-empty
// candidate list. Keys whose value is not a list, or is an empty list,
// yield no Entry and therefore no condition.
type Entry struct {
	Key    string
	Values []string
}

// ParsePathSpec decodes a PathSpec from its JSON query-parameter form.
func ParsePathSpec(raw string) (PathSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var spec PathSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("invalid components_path JSON: %w", err)
	}
	return spec, nil
}

// Entries returns the usable key/candidate pairs of the spec, in a
// deterministic order (sorted by key).
func (s PathSpec) Entries() []Entry {
	if len(s) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var entries []Entry
	for _, k := range keys {
		values := stringList(s[k])
		if len(values) == 0 {
			continue
		}
		entries = append(entries, Entry{Key: k, Values: values})
	}
	return entries
}

// Matches reports whether a row's taxonomy object satisfies the spec:
// the OR over all usable keys of "row array under key intersects the
// candidates". A spec with no usable keys matches nothing.
func (s PathSpec) Matches(row map[string]any) bool {
	for _, entry := range s.Entries() {
		rowValues := stringList(row[entry.Key])
		for _, have := range rowValues {
			for _, want := range entry.Values {
				if have == want {
					return true
				}
			}
		}
	}
	return false
}

// stringList coerces a decoded JSON value into a list of strings.
// Non-list values and non-string elements are ignored.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
