package backtest

import (
	"fmt"
	"sort"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// PortfolioRun is one instrument's slice of a shared-ceiling scan.
// Config carries the per-instrument run ID and parameters; Guard must
// point at the same RiskGuard in every run of the portfolio.
type PortfolioRun struct {
	Config Config
	H4     []domain.Bar
	Daily  []domain.Bar
}

// RunPortfolio drives several instruments through one time-ordered
// scan. Bars from all instruments are interleaved by start time, with
// instrument name breaking ties, so a shared ceiling guard sees
// reservations and releases in simulated order and the outcome is
// identical run to run. One result per input, in input order.
func RunPortfolio(runs []PortfolioRun) ([]*Result, error) {
	type track struct {
		driver *Driver
		state  *scanState
		run    *PortfolioRun
		next   int
	}

	tracks := make([]*track, 0, len(runs))
	seen := make(map[string]bool, len(runs))
	for i := range runs {
		run := &runs[i]
		if seen[run.Config.Instrument] {
			return nil, fmt.Errorf("backtest: instrument %s appears twice in portfolio", run.Config.Instrument)
		}
		seen[run.Config.Instrument] = true

		driver, err := NewDriver(run.Config)
		if err != nil {
			return nil, err
		}
		st := driver.newScan()
		if len(run.H4) > 0 {
			st.res.EquityCurve = append(st.res.EquityCurve, domain.EquityPoint{
				RunID:  run.Config.RunID,
				Time:   run.H4[0].Start,
				Equity: st.res.FinalEquity,
			})
		}
		tracks = append(tracks, &track{driver: driver, state: st, run: run})
	}

	// The tie-break order is fixed up front; the scan below always
	// picks the first track among those sharing the earliest bar.
	order := make([]*track, len(tracks))
	copy(order, tracks)
	sort.Slice(order, func(i, j int) bool {
		return order[i].run.Config.Instrument < order[j].run.Config.Instrument
	})

	for {
		var earliest *track
		for _, tr := range order {
			if tr.next >= len(tr.run.H4) {
				continue
			}
			if earliest == nil || tr.run.H4[tr.next].Start.Before(earliest.run.H4[earliest.next].Start) {
				earliest = tr
			}
		}
		if earliest == nil {
			break
		}
		if err := earliest.driver.step(earliest.state, earliest.next, earliest.run.H4, earliest.run.Daily); err != nil {
			return nil, err
		}
		earliest.next++
	}

	results := make([]*Result, len(tracks))
	for i, tr := range tracks {
		results[i] = tr.driver.finish(tr.state)
	}
	return results, nil
}
