package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadBrokerProfile reads and validates a broker profile from a JSON
// file. Validation failure is fatal to the caller; there is no partial
// or defaulted profile.
func LoadBrokerProfile(path string) (*BrokerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read broker profile: %w", err)
	}

	var p BrokerProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse broker profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate broker profile %s: %w", path, err)
	}
	return &p, nil
}

// LoadStrategyParams reads and validates strategy parameters from a
// JSON file. Missing fields inherit the defaults.
func LoadStrategyParams(path string) (StrategyParams, error) {
	params := DefaultStrategyParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return StrategyParams{}, fmt.Errorf("read strategy params: %w", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return StrategyParams{}, fmt.Errorf("parse strategy params %s: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return StrategyParams{}, fmt.Errorf("validate strategy params %s: %w", path, err)
	}
	return params, nil
}

// DefaultBrokerProfile returns the shipped profile used by tests and
// the example commands: a JPY-account retail broker with fixed/widened
// spread bands, JST maintenance windows and fixed-table swaps.
func DefaultBrokerProfile() *BrokerProfile {
	p := &BrokerProfile{
		Broker:   "minnafx",
		Timezone: "Asia/Tokyo",
		TradeUnit: TradeUnit{
			LotSizeUnits: 10000,
			MinLot:       0.01,
			LotStep:      0.01,
		},
		Instruments: map[string]InstrumentSpec{
			"USD/JPY": {
				PipSize: 0.01,
				Spread:  SpreadBand{Fixed: 0.2, Widened: 3.9},
				Swap:    SwapRates{Long: 15.0, Short: -18.0},
			},
			"EUR/JPY": {
				PipSize: 0.01,
				Spread:  SpreadBand{Fixed: 0.4, Widened: 9.9},
				Swap:    SwapRates{Long: 12.0, Short: -15.0},
			},
			"GBP/JPY": {
				PipSize: 0.01,
				Spread:  SpreadBand{Fixed: 0.9, Widened: 14.9},
				Swap:    SwapRates{Long: 20.0, Short: -23.0},
			},
		},
		Widened: WidenedWindows{
			PreOpenDefaultStart: ClockTime{Hour: 7, Minute: 10},
			PreOpenMondayStart:  ClockTime{Hour: 7, Minute: 0},
			PreOpenEnd:          ClockTime{Hour: 8, Minute: 0},
			PostClose: Window{
				Start: ClockTime{Hour: 5, Minute: 0},
				End:   ClockTime{Hour: 6, Minute: 50},
			},
		},
		Maintenance: MaintenanceTable{
			DailyMonday: []Window{
				{Start: ClockTime{Hour: 6, Minute: 50}, End: ClockTime{Hour: 7, Minute: 0}},
			},
			DailyTueSun: []Window{
				{Start: ClockTime{Hour: 6, Minute: 50}, End: ClockTime{Hour: 7, Minute: 10}},
			},
			Weekly: []WeeklyWindow{
				{
					Weekday: 6, // Saturday
					Window: Window{
						Start: ClockTime{Hour: 12, Minute: 0},
						End:   ClockTime{Hour: 18, Minute: 0},
					},
				},
			},
		},
		SwapMode: SwapModeFixedTable,
		Execution: Execution{
			SlippageEnabled:       true,
			SlippageOneWayPips:    0.2,
			SpreadFilterEnabled:   true,
			SpreadFilterMaxFactor: 3.0,
		},
	}

	if err := p.Validate(); err != nil {
		// The shipped profile is covered by tests; failure here is a
		// programming error.
		panic(err)
	}
	return p
}
