package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdg-tools/crosswalk-cli/internal/config"
	"github.com/sdg-tools/crosswalk-cli/internal/fixture"
	"github.com/sdg-tools/crosswalk-cli/internal/record"
)

func TestApplyFilterFlags(t *testing.T) {
	st := record.NewStore()

	require.NoError(t, applyFilterFlags(st, []string{"tier=1", "title=land"}, record.MatchSubstring))
	require.NoError(t, applyFilterFlags(st, []string{"status=draft"}, record.MatchExact))

	filter := st.Filter()
	require.Len(t, filter.Fields, 3)
	assert.Equal(t, record.MatchSubstring, filter.Fields["tier"].Mode)
	assert.Equal(t, record.MatchExact, filter.Fields["status"].Mode)
	assert.Equal(t, "draft", filter.Fields["status"].Pattern)
}

func TestApplyFilterFlagsInvalid(t *testing.T) {
	st := record.NewStore()

	assert.Error(t, applyFilterFlags(st, []string{"no-equals-sign"}, record.MatchSubstring))
	assert.Error(t, applyFilterFlags(st, []string{"=pattern"}, record.MatchSubstring))
}

func TestCellText(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil is empty", value: nil, want: ""},
		{name: "string as-is", value: "plain", want: "plain"},
		{name: "number as JSON", value: json.Number("42"), want: "42"},
		{name: "sequence as JSON", value: []any{"a", "b"}, want: `["a","b"]`},
		{name: "mapping as JSON", value: map[string]any{"k": "v"}, want: `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellText(tt.value))
		})
	}
}

func TestLoadRecordStoreFromConfiguredSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crosswalk.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"unsd_code":"11.3.1","indicator":"x"}]`), 0o644))

	cfg = &config.Config{}
	cfg.Fixtures.Crosswalk = path
	cfg.Fixtures.TimeoutSecs = 5
	recordsSource = ""

	st, err := loadRecordStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
}

func TestLoadRecordStoreMissingSource(t *testing.T) {
	cfg = &config.Config{}
	cfg.Fixtures.Crosswalk = filepath.Join(t.TempDir(), "absent.json")
	cfg.Fixtures.TimeoutSecs = 5
	recordsSource = ""

	_, err := loadRecordStore(context.Background())
	assert.Error(t, err)
}

func TestComputeRatesReportFromLocalFixtures(t *testing.T) {
	dir := t.TempDir()
	writeRateFixtures(t, dir)
	cfg = ratesTestConfig(dir)

	report, err := computeRatesReport(context.Background(), fixture.RateSources{
		BuiltUpT:    cfg.Fixtures.BuiltUpT,
		BuiltUpTN:   cfg.Fixtures.BuiltUpTN,
		AdminUnit:   cfg.Fixtures.AdminUnit,
		Populations: cfg.Fixtures.Populations,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, report.Stats.Years)
	require.NotNil(t, report.Stats.LCR)
	require.NotNil(t, report.Stats.PGR)
	require.NotNil(t, report.Stats.Ratio)
	assert.Positive(t, *report.Stats.LCR)
}

func TestRatesSourcesFlagOverrides(t *testing.T) {
	cfg = &config.Config{}
	cfg.Fixtures.BuiltUpT = "config_t.geojson"
	cfg.Fixtures.BuiltUpTN = "config_tn.geojson"
	cfg.Fixtures.AdminUnit = "config_admin.geojson"
	cfg.Fixtures.Populations = "config_pop.json"

	ratesBuiltUpT = "flag_t.shp"
	t.Cleanup(func() { ratesBuiltUpT = "" })

	src := ratesSources()
	assert.Equal(t, "flag_t.shp", src.BuiltUpT)
	assert.Equal(t, "config_tn.geojson", src.BuiltUpTN)
	assert.Equal(t, "config_admin.geojson", src.AdminUnit)
	assert.Equal(t, "config_pop.json", src.Populations)
}
