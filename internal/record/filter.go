package record

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
)

// MatchMode selects how a per-field pattern is compared.
type MatchMode string

const (
	MatchSubstring MatchMode = "substring"
	MatchExact     MatchMode = "exact"
)

// FieldFilter is a per-field predicate.
type FieldFilter struct {
	Pattern string    `json:"pattern"`
	Mode    MatchMode `json:"mode"`
}

// FilterState holds the global text query and the configured per-field
// predicates. A record passes iff it passes the global query (substring,
// OR across all known fields) and every field predicate (AND).
type FilterState struct {
	Query  string                 `json:"query"`
	Fields map[string]FieldFilter `json:"fields,omitempty"`
}

// Clone returns an independent copy of the filter state.
func (s FilterState) Clone() FilterState {
	c := FilterState{Query: s.Query}
	if s.Fields != nil {
		c.Fields = make(map[string]FieldFilter, len(s.Fields))
		for k, v := range s.Fields {
			c.Fields[k] = v
		}
	}
	return c
}

// Matches reports whether the record passes the filter state given the
// collection's known-field universe.
func (s FilterState) Matches(r Record, knownFields []string) bool {
	if q := strings.TrimSpace(s.Query); q != "" {
		hit := false
		for _, name := range knownFields {
			v, _ := r.Get(name)
			if matchValue(v, q, MatchSubstring) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for name, ff := range s.Fields {
		if ff.Pattern == "" {
			continue
		}
		v, _ := r.Get(name)
		if !matchValue(v, ff.Pattern, ff.Mode) {
			return false
		}
	}
	return true
}

// Visible returns the subset of records passing the filter state, preserving
// original relative order. It is a pure function of its inputs.
func Visible(records []Record, knownFields []string, state FilterState) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if state.Matches(r, knownFields) {
			out = append(out, r)
		}
	}
	return out
}

// matchValue applies a pattern to a single field value. An absent or null
// value never matches a non-empty pattern. Sequences match element-wise in
// exact mode and space-joined in substring mode. Mappings compare against
// their canonical JSON text. Scalars compare stringified. All comparisons
// are case-insensitive via Unicode case folding.
func matchValue(v any, pattern string, mode MatchMode) bool {
	if pattern == "" {
		return true
	}

	switch val := v.(type) {
	case nil:
		return false

	case []any:
		if mode == MatchExact {
			for _, elem := range val {
				if foldEquals(elementText(elem), pattern) {
					return true
				}
			}
			return false
		}
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = elementText(elem)
		}
		return foldContains(strings.Join(parts, " "), pattern)

	case map[string]any:
		text := canonicalJSON(val)
		if mode == MatchExact {
			return foldEquals(text, pattern)
		}
		return foldContains(text, pattern)

	default:
		text := stringifyScalar(val)
		if mode == MatchExact {
			return foldEquals(text, pattern)
		}
		return foldContains(text, pattern)
	}
}

// elementText renders a sequence element for comparison.
func elementText(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case []any, map[string]any:
		return canonicalJSON(v)
	default:
		return stringifyScalar(v)
	}
}

// canonicalJSON serializes a composite value with deterministic key order
// (encoding/json sorts map keys).
func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func foldContains(haystack, needle string) bool {
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

func foldEquals(a, b string) bool {
	folder := cases.Fold()
	return folder.String(a) == folder.String(b)
}
