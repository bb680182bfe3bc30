package backtest

import (
	"fmt"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/idhash"
)

// Segment is one walk-forward window and its run output.
type Segment struct {
	From   time.Time
	To     time.Time
	Result *Result
}

// WalkForward splits the fast-timeframe series into n contiguous
// windows and runs each one with the equity carried over from the
// previous window. The daily series is passed whole; confirmation
// filtering inside the driver keeps later windows from seeing the
// future. Each segment gets its own derived run ID.
func WalkForward(cfg Config, h4, daily []domain.Bar, n int) ([]Segment, error) {
	if n <= 0 {
		return nil, fmt.Errorf("backtest: walk-forward segments must be > 0, got %d", n)
	}
	if len(h4) < n {
		return nil, fmt.Errorf("backtest: %d bars cannot fill %d segments", len(h4), n)
	}

	segments := make([]Segment, 0, n)
	equity := cfg.InitialEquity
	size := len(h4) / n

	for k := 0; k < n; k++ {
		lo := k * size
		hi := lo + size
		if k == n-1 {
			hi = len(h4)
		}
		window := h4[lo:hi]
		from := window[0].Start
		to := window[len(window)-1].End(domain.TimeframeH4)

		segCfg := cfg
		segCfg.InitialEquity = equity
		segCfg.RunID = idhash.ComputeRunID(cfg.Instrument, cfg.Params.EntryMode, cfg.Params.ExitMode, from.Unix(), to.Unix())

		driver, err := NewDriver(segCfg)
		if err != nil {
			return nil, err
		}
		res, err := driver.Run(window, daily)
		if err != nil {
			return nil, fmt.Errorf("backtest: segment %d: %w", k, err)
		}

		segments = append(segments, Segment{From: from, To: to, Result: res})
		equity = res.FinalEquity
	}

	return segments, nil
}
