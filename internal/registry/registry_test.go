package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/domain/models"
	"ORBLab/internal/engine"
)

const strategiesYAML = `
strategies:
  - instrument: MGC
    anchor: "09:00"
    rr_target: 2.0
    stop_mode: full
  - instrument: MGC
    anchor: "10:00"
    rr_target: 1.5
    stop_mode: half
    size_filter: 0.8
  - instrument: MGC
    anchor: "11:00"
    rr_target: null
    stop_mode: full
  - instrument: MGC
    anchor: "12:00"
    stop_mode: full
  - instrument: MGC
    anchor: "13:00"
    rr_target: 0
    stop_mode: full
  - instrument: MGC
    anchor: "14:00"
    rr_target: -1.0
    stop_mode: full
  - instrument: MGC
    anchor: "15:00"
    rr_target: .inf
    stop_mode: full
  - instrument: MGC
    anchor: "16:00"
    rr_target: 2.0
    stop_mode: quarter
  - instrument: MNQ
    anchor: "09:30"
    rr_target: 2.0
    stop_mode: full
  - instrument: MNQ
    anchor: "09:30"
    rr_target: 3.0
    stop_mode: full
`

func TestResolve(t *testing.T) {
	s, err := ParseStrategies([]byte(strategiesYAML))
	require.NoError(t, err)

	cfg, err := s.Resolve("MGC", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.RRTarget)
	assert.Equal(t, models.StopFull, cfg.StopMode)
	assert.Nil(t, cfg.SizeFilter)

	cfg, err = s.Resolve("MGC", "10:00")
	require.NoError(t, err)
	assert.Equal(t, models.StopHalf, cfg.StopMode)
	require.NotNil(t, cfg.SizeFilter)
	assert.Equal(t, 0.8, *cfg.SizeFilter)
}

func TestResolveUnpaddedAnchor(t *testing.T) {
	rr := 2.0
	s := NewStrategies([]StrategyRecord{
		{Instrument: "MGC", Anchor: "09:00", RRTarget: &rr, StopMode: models.StopFull},
		{Instrument: "MNQ", Anchor: "9:30", RRTarget: &rr, StopMode: models.StopFull},
	})

	cfg, err := s.Resolve("MGC", "9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", cfg.Anchor)

	cfg, err = s.Resolve("MNQ", "09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", cfg.Anchor)

	assert.Equal(t, []models.StrategyKey{
		{Instrument: "MGC", Anchor: "09:00"},
		{Instrument: "MNQ", Anchor: "09:30"},
	}, s.Keys())
}

func TestPaddedAndUnpaddedRecordsConflict(t *testing.T) {
	rr, rr2 := 2.0, 3.0
	s := NewStrategies([]StrategyRecord{
		{Instrument: "MGC", Anchor: "09:00", RRTarget: &rr, StopMode: models.StopFull},
		{Instrument: "MGC", Anchor: "9:00", RRTarget: &rr2, StopMode: models.StopFull},
	})

	_, err := s.Resolve("MGC", "09:00")
	assert.True(t, engine.IsConfigurationError(err))
}

func TestResolveFailsClosed(t *testing.T) {
	s, err := ParseStrategies([]byte(strategiesYAML))
	require.NoError(t, err)

	tests := []struct {
		name       string
		instrument string
		anchor     string
	}{
		{"missing record", "MGC", "08:00"},
		{"unknown instrument", "ES", "09:00"},
		{"null rr", "MGC", "11:00"},
		{"absent rr", "MGC", "12:00"},
		{"zero rr", "MGC", "13:00"},
		{"negative rr", "MGC", "14:00"},
		{"infinite rr", "MGC", "15:00"},
		{"unknown stop mode", "MGC", "16:00"},
		{"duplicate records", "MNQ", "09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := s.Resolve(tt.instrument, tt.anchor)
			require.Error(t, err)
			assert.True(t, engine.IsConfigurationError(err))
			assert.Zero(t, cfg.RRTarget, "no default may leak out")
		})
	}
}

func TestKeysSorted(t *testing.T) {
	s := NewStrategies([]StrategyRecord{
		{Instrument: "MNQ", Anchor: "09:30"},
		{Instrument: "MGC", Anchor: "10:00"},
		{Instrument: "MGC", Anchor: "09:00"},
	})
	assert.Equal(t, []models.StrategyKey{
		{Instrument: "MGC", Anchor: "09:00"},
		{Instrument: "MGC", Anchor: "10:00"},
		{Instrument: "MNQ", Anchor: "09:30"},
	}, s.Keys())
}

func TestLoadStrategiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strategiesYAML), 0o644))

	s, err := LoadStrategies(path)
	require.NoError(t, err)
	assert.Len(t, s.Keys(), 9)

	_, err = LoadStrategies(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCostsLookup(t *testing.T) {
	c, err := ParseCosts([]byte(`
costs:
  - instrument: MGC
    point_value: 10
    tick_size: 0.1
    commission: 1.24
    spread_points: 0.1
    slippage_points: 0.2
  - instrument: MNQ
    point_value: 0
    tick_size: 0.25
`))
	require.NoError(t, err)

	spec, err := c.Lookup("MGC")
	require.NoError(t, err)
	assert.Equal(t, 10.0, spec.PointValue)
	assert.Equal(t, 4.24, engine.ComputeFriction(spec).Dollars)

	_, err = c.Lookup("MNQ")
	assert.True(t, engine.IsConfigurationError(err))

	_, err = c.Lookup("ES")
	assert.True(t, engine.IsConfigurationError(err))

	assert.Equal(t, []string{"MGC", "MNQ"}, c.Instruments())
}
