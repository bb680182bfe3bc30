package metrics

import (
	"sort"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// Summary holds the performance figures of one set of closed trades.
type Summary struct {
	RunID      string
	Instrument string

	// Counts
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64

	// PnL, account currency
	NetPnL       float64
	GrossProfit  float64 // sum of winning trades' net PnL
	GrossLoss    float64 // absolute sum of losing trades' net PnL
	ProfitFactor float64 // GrossProfit / GrossLoss; 0 when no losses
	TotalCosts   float64
	AvgWin       float64
	AvgLoss      float64
	Expectancy   float64 // mean net PnL per trade

	// Order-dependent figures, chronological trade order
	MaxDrawdown          float64 // worst peak-to-trough of the equity curve
	MaxDrawdownPct       float64 // relative to the peak it fell from
	MaxConsecutiveLosses int

	AvgHoldingHours float64

	// Breakdowns
	ByCloseReason map[string]int
	ByTP2Source   map[string]int

	Monthly []MonthlyReturn
}

// MonthlyReturn is the realized net PnL of one calendar month, keyed by
// trade close time.
type MonthlyReturn struct {
	Year   int
	Month  time.Month
	Trades int
	NetPnL float64
}

// Compute calculates all figures from closed trades and the run's equity
// series. Open trades must be excluded by the caller. An empty or nil
// equity series falls back to a cumulative-PnL drawdown.
func Compute(trades []*domain.Trade, equity []*domain.EquityPoint) *Summary {
	s := &Summary{
		ByCloseReason: make(map[string]int),
		ByTP2Source:   make(map[string]int),
	}
	n := len(trades)
	if n == 0 {
		return s
	}

	// Sort deterministically by entry time ASC, trade ID ASC.
	sorted := make([]*domain.Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].EntryTime.Equal(sorted[j].EntryTime) {
			return sorted[i].EntryTime.Before(sorted[j].EntryTime)
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	s.RunID = sorted[0].RunID
	s.Instrument = sorted[0].Instrument
	s.TotalTrades = n

	var holdingSum float64
	for _, t := range sorted {
		s.NetPnL += t.TotalPnLNet
		s.TotalCosts += t.TotalCost
		holdingSum += t.HoldingHours

		if t.TotalPnLNet > 0 {
			s.Wins++
			s.GrossProfit += t.TotalPnLNet
		} else {
			s.Losses++
			s.GrossLoss += -t.TotalPnLNet
		}

		s.ByCloseReason[t.CloseReason]++
		if t.TP2Source != "" {
			s.ByTP2Source[t.TP2Source]++
		}
	}

	s.WinRate = float64(s.Wins) / float64(n)
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	s.Expectancy = s.NetPnL / float64(n)
	s.AvgHoldingHours = holdingSum / float64(n)

	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sorted)
	s.MaxDrawdown, s.MaxDrawdownPct = computeMaxDrawdown(equity, sorted)
	s.Monthly = computeMonthly(sorted)

	return s
}

// computeMaxDrawdown finds the worst peak-to-trough decline. The equity
// series is authoritative when present; otherwise the cumulative net PnL
// of the sorted trades stands in (with no percentage, since there is no
// starting equity to relate it to).
func computeMaxDrawdown(equity []*domain.EquityPoint, sorted []*domain.Trade) (dd, ddPct float64) {
	if len(equity) > 0 {
		points := make([]*domain.EquityPoint, len(equity))
		copy(points, equity)
		sort.Slice(points, func(i, j int) bool {
			return points[i].Time.Before(points[j].Time)
		})

		peak := points[0].Equity
		for _, p := range points {
			if p.Equity > peak {
				peak = p.Equity
			}
			drop := peak - p.Equity
			if drop > dd {
				dd = drop
				if peak != 0 {
					ddPct = drop / peak
				}
			}
		}
		return dd, ddPct
	}

	var cumulative, peak float64
	for _, t := range sorted {
		cumulative += t.TotalPnLNet
		if cumulative > peak {
			peak = cumulative
		}
		if drop := peak - cumulative; drop > dd {
			dd = drop
		}
	}
	return dd, 0
}

// computeMaxConsecutiveLosses finds the longest streak of net PnL <= 0.
// Trades must be in chronological order.
func computeMaxConsecutiveLosses(sorted []*domain.Trade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range sorted {
		if t.TotalPnLNet <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// computeMonthly buckets realized PnL by close month, oldest first.
func computeMonthly(sorted []*domain.Trade) []MonthlyReturn {
	type ym struct {
		year  int
		month time.Month
	}
	buckets := make(map[ym]*MonthlyReturn)
	for _, t := range sorted {
		if t.CloseTime.IsZero() {
			continue
		}
		k := ym{t.CloseTime.Year(), t.CloseTime.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &MonthlyReturn{Year: k.year, Month: k.month}
			buckets[k] = b
		}
		b.Trades++
		b.NetPnL += t.TotalPnLNet
	}

	monthly := make([]MonthlyReturn, 0, len(buckets))
	for _, b := range buckets {
		monthly = append(monthly, *b)
	}
	sort.Slice(monthly, func(i, j int) bool {
		if monthly[i].Year != monthly[j].Year {
			return monthly[i].Year < monthly[j].Year
		}
		return monthly[i].Month < monthly[j].Month
	})
	return monthly
}
