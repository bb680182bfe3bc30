package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", r.Instrument))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Closed Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Open Trades | %d |\n", r.OpenTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.1f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Net PnL | %.2f |\n", s.NetPnL))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", s.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Expectancy | %.2f |\n", s.Expectancy))
	sb.WriteString(fmt.Sprintf("| Avg Win / Avg Loss | %.2f / %.2f |\n", s.AvgWin, s.AvgLoss))
	sb.WriteString(fmt.Sprintf("| Total Costs | %.2f |\n", s.TotalCosts))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f (%.1f%%) |\n", s.MaxDrawdown, s.MaxDrawdownPct*100))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| Avg Holding Hours | %.1f |\n", s.AvgHoldingHours))
	sb.WriteString("\n")

	// Close reason breakdown
	if len(s.ByCloseReason) > 0 {
		sb.WriteString("## Exits by Reason\n\n")
		sb.WriteString("| Reason | Trades |\n")
		sb.WriteString("|--------|--------|\n")
		for _, reason := range sortedKeys(s.ByCloseReason) {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", reason, s.ByCloseReason[reason]))
		}
		sb.WriteString("\n")
	}

	// Monthly returns
	if len(s.Monthly) > 0 {
		sb.WriteString("## Monthly Returns\n\n")
		sb.WriteString("| Month | Trades | Net PnL |\n")
		sb.WriteString("|-------|--------|--------|\n")
		for _, m := range s.Monthly {
			sb.WriteString(fmt.Sprintf("| %04d-%02d | %d | %.2f |\n",
				m.Year, m.Month, m.Trades, m.NetPnL))
		}
		sb.WriteString("\n")
	}

	// Skips
	if len(r.SkipCounts) > 0 {
		sb.WriteString("## Skipped Signals\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, row := range r.SkipCounts {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Reason, row.Count))
		}
		sb.WriteString("\n")
	}

	// Trade table
	if len(r.Trades) > 0 {
		sb.WriteString("## Trades\n\n")
		sb.WriteString("| Entry | Dir | Pattern | Units | TP2 Source | Close | Reason | Net PnL |\n")
		sb.WriteString("|-------|-----|---------|-------|------------|-------|--------|--------|\n")
		for _, t := range r.Trades {
			closeTime := "open"
			if !t.CloseTime.IsZero() {
				closeTime = t.CloseTime.Format("2006-01-02 15:04")
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.0f | %s | %s | %s | %.2f |\n",
				t.EntryTime.Format("2006-01-02 15:04"),
				t.Direction,
				t.Pattern,
				t.Units,
				t.TP2Source,
				closeTime,
				t.CloseReason,
				t.PnLNet,
			))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
