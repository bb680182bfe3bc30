package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBrokerProfile_Valid(t *testing.T) {
	p := DefaultBrokerProfile()
	require.NoError(t, p.Validate())
	assert.NotNil(t, p.Location())

	spec, err := p.Instrument("USD/JPY")
	require.NoError(t, err)
	assert.Greater(t, spec.PipSize, 0.0)
	assert.Greater(t, spec.Spread.Widened, spec.Spread.Fixed)
}

func TestBrokerProfile_UnknownInstrument(t *testing.T) {
	p := DefaultBrokerProfile()
	require.NoError(t, p.Validate())

	_, err := p.Instrument("XAU/USD")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestBrokerProfile_ValidateRejectsBadTimezone(t *testing.T) {
	p := DefaultBrokerProfile()
	p.Timezone = "Mars/Olympus_Mons"
	assert.ErrorIs(t, p.Validate(), ErrInvalidTimezone)
}

func TestBrokerProfile_ValidateRejectsInvertedSpread(t *testing.T) {
	p := DefaultBrokerProfile()
	spec := p.Instruments["USD/JPY"]
	spec.Spread.Widened = spec.Spread.Fixed / 2
	p.Instruments["USD/JPY"] = spec
	assert.ErrorIs(t, p.Validate(), ErrInvalidSpread)
}

func TestDefaultStrategyParams_Valid(t *testing.T) {
	params := DefaultStrategyParams()
	require.NoError(t, params.Validate())
}

func TestStrategyParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StrategyParams)
		wantErr error
	}{
		{
			name:    "zero risk fraction",
			mutate:  func(p *StrategyParams) { p.RiskFraction = 0 },
			wantErr: ErrInvalidRisk,
		},
		{
			name:    "full close at TP1",
			mutate:  func(p *StrategyParams) { p.TP1CloseFrac = 1 },
			wantErr: ErrInvalidRisk,
		},
		{
			name:    "unknown entry mode",
			mutate:  func(p *StrategyParams) { p.EntryMode = "MARKET" },
			wantErr: ErrUnknownEntryMode,
		},
		{
			name: "offset limit without offset",
			mutate: func(p *StrategyParams) {
				p.EntryMode = EntryOffsetLimit
				p.LimitATROffset = 0
			},
			wantErr: ErrInvalidRisk,
		},
		{
			name:    "unknown exit mode",
			mutate:  func(p *StrategyParams) { p.ExitMode = "TRAILING" },
			wantErr: ErrUnknownExitMode,
		},
		{
			name: "fixed R target below TP1",
			mutate: func(p *StrategyParams) {
				p.ExitMode = ExitFixedR
				p.TP2R = p.TP1R
			},
			wantErr: ErrInvalidRisk,
		},
		{
			name: "structure without lookback",
			mutate: func(p *StrategyParams) {
				p.ExitMode = ExitStructure
				p.StructureLookback = 0
			},
			wantErr: ErrInvalidRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultStrategyParams()
			tt.mutate(&params)
			assert.ErrorIs(t, params.Validate(), tt.wantErr)
		})
	}
}

func TestLoadStrategyParams_MissingFieldsInheritDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"risk_fraction": 0.01}`), 0o644))

	params, err := LoadStrategyParams(path)
	require.NoError(t, err)

	defaults := DefaultStrategyParams()
	assert.Equal(t, 0.01, params.RiskFraction)
	assert.Equal(t, defaults.EntryMode, params.EntryMode)
	assert.Equal(t, defaults.TP1R, params.TP1R)
}

func TestLoadStrategyParams_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"risk_fraction": 2.0}`), 0o644))

	_, err := LoadStrategyParams(path)
	assert.ErrorIs(t, err, ErrInvalidRisk)
}

func TestLoadBrokerProfile_RoundTrip(t *testing.T) {
	// The shipped profile written back out must load and validate.
	p := DefaultBrokerProfile()
	data, err := json.Marshal(p)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadBrokerProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p.Timezone, loaded.Timezone)
	assert.Equal(t, p.SwapMode, loaded.SwapMode)
	assert.Len(t, loaded.Instruments, len(p.Instruments))
}
