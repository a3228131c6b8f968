package sim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"paper_trading/internal/advisor"
	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

// Guardrail constants. The advisory verdict never overrides these.
const (
	// A symbol is only evaluated when held or when it moved more than
	// this much (percent, strict comparison) since the previous close.
	preFilterPct = 1.5

	// Fractional quantities are rounded to this many decimal places at
	// computation time and never re-rounded.
	qtyPrecision = 4
)

var (
	// A buy invests this fraction of current cash...
	investFraction = decimal.NewFromFloat(0.25)
	// ...and is rejected outright below this dollar amount.
	minTradeAmount = decimal.NewFromInt(10)
)

// Outcome classifies what one evaluation did to the portfolio.
type Outcome int

const (
	OutcomeHeld    Outcome = iota // HOLD verdict, or advisory failure degraded to HOLD
	OutcomeBought                 // approved buy, ledger debited
	OutcomeSold                   // approved sell, position liquidated
	OutcomeBlocked                // guardrail rejected the verdict; normal no-op
	OutcomeFailed                 // broker rejected the order; ledger untouched
)

// StateStore is the slice of the storage layer the simulation needs.
type StateStore interface {
	Load() models.PortfolioState
	Save(models.PortfolioState)
}

// Engine turns advisory verdicts into guarded ledger mutations. Each
// approved trade is submitted to the broker first and persisted
// immediately after the local ledger mutation; a failed submission
// leaves the ledger untouched.
type Engine struct {
	provider market.Provider
	advisor  advisor.Advisor
	store    StateStore
}

func NewEngine(provider market.Provider, adv advisor.Advisor, store StateStore) *Engine {
	return &Engine{provider: provider, advisor: adv, store: store}
}

// Eligible is the volatility/ownership pre-filter. Symbols failing it
// are skipped without an advisory call, which is what keeps the oracle
// bill proportional to actual market movement.
func (e *Engine) Eligible(state *models.PortfolioState, symbol string, pctChange float64) bool {
	if _, held := state.Portfolio[symbol]; held {
		return true
	}
	return math.Abs(pctChange) > preFilterPct
}

// EvaluateAndExecute runs the full decision protocol for one symbol:
// portfolio context, advisory call, guardrails, execution. At most one
// position-changing action can result.
func (e *Engine) EvaluateAndExecute(ctx context.Context, snap models.Snapshot, state *models.PortfolioState, headlines []string, worldContext, today string, rlog *RunLog) Outcome {
	symbol := snap.Symbol
	price := snap.LastPrice

	req := advisor.Request{
		Symbol:       symbol,
		Price:        price,
		PctChange:    snap.PctChange(),
		Headlines:    headlines,
		WorldContext: worldContext,
	}
	if pos, held := state.Portfolio[symbol]; held {
		req.Position = &advisor.PositionContext{Qty: pos.Qty, AvgPrice: pos.AvgPrice}
		if pos.AvgPrice.IsPositive() {
			gain := price.Sub(pos.AvgPrice).Div(pos.AvgPrice).InexactFloat64() * 100
			rlog.Printf("      Position Gain/Loss: %+.2f%% (Entry: $%s)", gain, pos.AvgPrice.StringFixed(2))
		}
	}

	verdict, err := e.advisor.Decide(ctx, req)
	if err != nil {
		rlog.Printf("      Advisory error for %s: %v", symbol, err)
		verdict = advisor.Verdict{Decision: advisor.Hold, Reason: "advisory unavailable"}
	}
	rlog.Printf("      %s: %s", verdict.Decision, verdict.Reason)

	switch verdict.Decision {
	case advisor.Buy:
		return e.executeBuy(symbol, price, state, today, rlog)
	case advisor.Sell:
		return e.executeSell(symbol, price, state, today, rlog)
	default:
		return OutcomeHeld
	}
}

// executeBuy applies the buy guardrails in order: wash trade, single
// position per symbol, minimum viable trade. Only then does money move.
func (e *Engine) executeBuy(symbol string, price decimal.Decimal, state *models.PortfolioState, today string, rlog *RunLog) Outcome {
	if soldToday(state, symbol, today) {
		rlog.Printf("      SKIPPED BUY: Sold %s today (Wash Trade Prevention)", symbol)
		return OutcomeBlocked
	}
	if pos, held := state.Portfolio[symbol]; held {
		rlog.Printf("      SKIPPED BUY: Already own %s shares (Wait for sell signal)", pos.Qty)
		return OutcomeBlocked
	}

	investAmount := state.Cash.Mul(investFraction)
	if investAmount.LessThan(minTradeAmount) {
		rlog.Printf("      SKIPPED BUY: Insufficient funds ($%s) for minimum trade", investAmount.StringFixed(2))
		return OutcomeBlocked
	}

	qty := investAmount.Div(price).Round(qtyPrecision)

	// Broker first. Nothing is committed locally until the order as a
	// request went through, so a failure needs no compensation.
	if _, err := e.provider.PlaceOrder(symbol, qty, "buy"); err != nil {
		rlog.Printf("      Buy Failed: %v", err)
		return OutcomeFailed
	}

	cost := qty.Mul(price)
	state.Cash = state.Cash.Sub(cost)
	// Overwrite semantics: a prior stale position is replaced, not
	// averaged. Unreachable from a clean state since a second buy while
	// holding is rejected above.
	state.Portfolio[symbol] = models.Position{Qty: qty, AvgPrice: price}
	state.History = append(state.History, fmt.Sprintf("%s: BOUGHT %s %s", today, qty, symbol))
	e.store.Save(*state)

	rlog.Printf("      BOUGHT %s %s (Market Order)", qty, symbol)
	return OutcomeBought
}

// executeSell liquidates the entire held quantity; there are no partial
// sells in this simulation.
func (e *Engine) executeSell(symbol string, price decimal.Decimal, state *models.PortfolioState, today string, rlog *RunLog) Outcome {
	pos, held := state.Portfolio[symbol]
	if !held {
		rlog.Printf("      SKIPPED SELL: No position to sell")
		return OutcomeBlocked
	}

	if _, err := e.provider.PlaceOrder(symbol, pos.Qty, "sell"); err != nil {
		rlog.Printf("      Sell Failed: %v", err)
		return OutcomeFailed
	}

	revenue := pos.Qty.Mul(price)
	state.Cash = state.Cash.Add(revenue)
	delete(state.Portfolio, symbol)
	state.History = append(state.History, fmt.Sprintf("%s: SOLD %s", today, symbol))
	e.store.Save(*state)

	rlog.Printf("      SOLD %s %s (Market Order)", pos.Qty, symbol)
	return OutcomeSold
}

// soldToday scans the transaction log for a same-day SOLD entry. The log
// lines are "<date>: SOLD <symbol>", so a substring match on that exact
// shape is sufficient.
func soldToday(state *models.PortfolioState, symbol, today string) bool {
	marker := fmt.Sprintf("%s: SOLD %s", today, symbol)
	for _, entry := range state.History {
		if strings.Contains(entry, marker) {
			return true
		}
	}
	return false
}
