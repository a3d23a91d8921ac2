package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		pattern string
		mode    MatchMode
		want    bool
	}{
		{name: "empty pattern matches anything", value: nil, pattern: "", mode: MatchSubstring, want: true},
		{name: "null never matches non-empty", value: nil, pattern: "x", mode: MatchSubstring, want: false},
		{name: "null never matches exact", value: nil, pattern: "x", mode: MatchExact, want: false},

		{name: "string substring case-insensitive", value: "Land Consumption", pattern: "consumption", mode: MatchSubstring, want: true},
		{name: "string substring miss", value: "Land Consumption", pattern: "population", mode: MatchSubstring, want: false},
		{name: "string exact case-insensitive", value: "Tier", pattern: "tier", mode: MatchExact, want: true},
		{name: "string exact rejects superstring", value: "tiers", pattern: "tier", mode: MatchExact, want: false},

		{name: "bool stringified", value: true, pattern: "TRUE", mode: MatchExact, want: true},

		{name: "sequence substring joins with space", value: []any{"LA_SpatialUnit", "LA_BAUnit"}, pattern: "spatialunit la_ba", mode: MatchSubstring, want: true},
		{name: "sequence exact matches one element", value: []any{"LA_SpatialUnit", "LA_BAUnit"}, pattern: "la_baunit", mode: MatchExact, want: true},
		{name: "sequence exact rejects join", value: []any{"a", "b"}, pattern: "a b", mode: MatchExact, want: false},

		{name: "mapping substring over canonical JSON", value: map[string]any{"source": "GHSL"}, pattern: `"ghsl"`, mode: MatchSubstring, want: true},
		{name: "mapping exact needs full canonical text", value: map[string]any{"source": "GHSL"}, pattern: `{"source":"GHSL"}`, mode: MatchExact, want: true},
		{name: "mapping exact partial misses", value: map[string]any{"source": "GHSL"}, pattern: "GHSL", mode: MatchExact, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, matchValue(tt.value, tt.pattern, tt.mode))
		})
	}
}

// Substring mode on tier "10" matches pattern "1"; exact mode only matches
// the precise value.
func TestTierExactVersusSubstring(t *testing.T) {
	t.Parallel()

	records := []Record{
		mustRecord(t, `{"indicator":"a","tier":"1"}`),
		mustRecord(t, `{"indicator":"b","tier":"10"}`),
		mustRecord(t, `{"indicator":"c","tier":"2"}`),
		mustRecord(t, `{"indicator":"d","tier":1}`),
	}
	fields := FieldUniverse(records)

	sub := FilterState{Fields: map[string]FieldFilter{
		"tier": {Pattern: "1", Mode: MatchSubstring},
	}}
	got := Visible(records, fields, sub)
	require.Len(t, got, 3)

	exact := FilterState{Fields: map[string]FieldFilter{
		"tier": {Pattern: "1", Mode: MatchExact},
	}}
	got = Visible(records, fields, exact)
	require.Len(t, got, 2)
	ind0, _ := got[0].Get("indicator")
	ind1, _ := got[1].Get("indicator")
	assert.Equal(t, "a", ind0)
	assert.Equal(t, "d", ind1)
}

func TestGlobalQueryORsAcrossFields(t *testing.T) {
	t.Parallel()

	records := []Record{
		mustRecord(t, `{"title":"land use","custodian":"FAO"}`),
		mustRecord(t, `{"title":"tenure","custodian":"UN-Habitat"}`),
		mustRecord(t, `{"title":"degradation","custodian":"UNCCD"}`),
	}
	fields := FieldUniverse(records)

	state := FilterState{Query: "un"}
	got := Visible(records, fields, state)
	require.Len(t, got, 2)
}

func TestFiltersANDTogether(t *testing.T) {
	t.Parallel()

	records := []Record{
		mustRecord(t, `{"title":"land use","tier":"2"}`),
		mustRecord(t, `{"title":"land rights","tier":"1"}`),
		mustRecord(t, `{"title":"water","tier":"2"}`),
	}
	fields := FieldUniverse(records)

	state := FilterState{
		Query: "land",
		Fields: map[string]FieldFilter{
			"tier": {Pattern: "2", Mode: MatchExact},
		},
	}
	got := Visible(records, fields, state)
	require.Len(t, got, 1)
	title, _ := got[0].Get("title")
	assert.Equal(t, "land use", title)
}

func TestVisibleIsOrderPreservingSubsetAndIdempotent(t *testing.T) {
	t.Parallel()

	records := []Record{
		mustRecord(t, `{"n":"one","keep":true}`),
		mustRecord(t, `{"n":"two","keep":false}`),
		mustRecord(t, `{"n":"three","keep":true}`),
		mustRecord(t, `{"n":"four","keep":true}`),
	}
	fields := FieldUniverse(records)
	state := FilterState{Fields: map[string]FieldFilter{
		"keep": {Pattern: "true", Mode: MatchExact},
	}}

	first := Visible(records, fields, state)
	require.Len(t, first, 3)
	n0, _ := first[0].Get("n")
	n1, _ := first[1].Get("n")
	n2, _ := first[2].Get("n")
	assert.Equal(t, []any{"one", "three", "four"}, []any{n0, n1, n2})

	// Refiltering its own output with the same state yields itself.
	second := Visible(first, fields, state)
	assert.Equal(t, first, second)
}

func TestAbsentFieldFailsFieldFilter(t *testing.T) {
	t.Parallel()

	records := []Record{
		mustRecord(t, `{"tier":"1"}`),
		mustRecord(t, `{"title":"no tier"}`),
	}
	fields := FieldUniverse(records)

	state := FilterState{Fields: map[string]FieldFilter{
		"tier": {Pattern: "1", Mode: MatchSubstring},
	}}
	got := Visible(records, fields, state)
	require.Len(t, got, 1)
}

func TestFilterStateCloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := FilterState{
		Query:  "q",
		Fields: map[string]FieldFilter{"a": {Pattern: "p", Mode: MatchExact}},
	}
	c := orig.Clone()
	c.Fields["a"] = FieldFilter{Pattern: "other", Mode: MatchSubstring}

	assert.Equal(t, "p", orig.Fields["a"].Pattern)
}
