package sim

import (
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

// MarkToMarket values the whole portfolio: cash plus every position at
// its latest observed price. A position whose quote went missing this
// run is marked at its stored entry price instead; a stale mark beats a
// crashed report.
func MarkToMarket(state *models.PortfolioState, latestPrices map[string]decimal.Decimal) decimal.Decimal {
	total := state.Cash
	for symbol, pos := range state.Portfolio {
		mark, ok := latestPrices[symbol]
		if !ok {
			mark = pos.AvgPrice
		}
		total = total.Add(pos.Qty.Mul(mark))
	}
	return total
}

// UpsertEquityHistory records today's total on the equity curve,
// overwriting an existing entry for the date. Re-running the engine on
// the same day therefore never duplicates a point.
func UpsertEquityHistory(state *models.PortfolioState, today string, total decimal.Decimal) {
	for i := range state.EquityHistory {
		if state.EquityHistory[i].Date == today {
			state.EquityHistory[i].Total = total
			return
		}
	}
	state.EquityHistory = append(state.EquityHistory, models.EquityPoint{Date: today, Total: total})
}
