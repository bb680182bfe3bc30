package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// RenderTradesCSV renders the trade table as a CSV string.
func RenderTradesCSV(rows []TradeRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,direction,pattern,entry_time,entry_mid,entry_exec,units,")
	sb.WriteString("stop_mid,tp1_price,tp2_price,tp2_source,")
	sb.WriteString("close_time,close_reason,pnl_gross,pnl_net,costs,hold_hours\n")

	// Rows
	for _, r := range rows {
		closeTime := ""
		if !r.CloseTime.IsZero() {
			closeTime = r.CloseTime.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.5f,%.5f,%.0f,%.5f,%.5f,%.5f,%s,%s,%s,%.2f,%.2f,%.2f,%.1f\n",
			r.TradeID,
			r.Direction,
			r.Pattern,
			r.EntryTime.Format(time.RFC3339),
			r.EntryMid,
			r.EntryExec,
			r.Units,
			r.StopMid,
			r.TP1Price,
			r.TP2Price,
			r.TP2Source,
			closeTime,
			r.CloseReason,
			r.PnLGross,
			r.PnLNet,
			r.Costs,
			r.HoldHours,
		))
	}

	return sb.String()
}

// RenderEquityCSV renders an equity series as a CSV string.
func RenderEquityCSV(points []*domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("run_id,time,equity\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f\n",
			p.RunID, p.Time.Format(time.RFC3339), p.Equity))
	}

	return sb.String()
}
