package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"paper_trading/internal/advisor"
	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	newsLimit  = 3
)

// Driver orchestrates one simulation pass over the tracked universe:
// load state, check the venue, snapshot the market, evaluate each symbol
// in fixed order, mark to market, save. Symbols are strictly sequential
// because every buy sizes itself against the cash left by the previous
// one.
type Driver struct {
	store        StateStore
	provider     market.Provider
	engine       *Engine
	universe     []string
	worldContext string
}

func NewDriver(store StateStore, provider market.Provider, adv advisor.Advisor, universe []string, worldContext string) *Driver {
	return &Driver{
		store:        store,
		provider:     provider,
		engine:       NewEngine(provider, adv, store),
		universe:     universe,
		worldContext: worldContext,
	}
}

// Run executes one pass. It always returns the accumulated run log and
// the (possibly mutated) state; the error is non-nil only for the one
// fatal case, a failed market snapshot fetch.
func (d *Driver) Run(ctx context.Context) (string, models.PortfolioState, error) {
	rlog := NewRunLog()
	state := d.store.Load()
	today := time.Now().Format(dateLayout)

	marketOpen := true
	clock, err := d.provider.GetClock()
	switch {
	case err != nil:
		// A broken clock should not stop the run; assume open.
		rlog.Printf("Failed to check market hours: %v. Proceeding with caution...", err)
	case !clock.IsOpen:
		marketOpen = false
	}

	rlog.Printf("PORTFOLIO: $%s Cash | Holdings: %v", state.Cash.StringFixed(2), heldSymbols(&state))

	if !marketOpen {
		// Read-only mode: no advisory calls, no guardrails, no trading,
		// no save. Just show what we hold.
		rlog.Printf("Market is CLOSED. Running in Read-Only Mode (No advisory/Trading).")
		for _, symbol := range heldSymbols(&state) {
			pos := state.Portfolio[symbol]
			rlog.Printf("   %s: %s shares @ $%s", symbol, pos.Qty, pos.AvgPrice.StringFixed(2))
		}
		return rlog.String(), state, nil
	}

	rlog.Printf("Fetching real-time data for %d symbols...", len(d.universe))
	snaps, err := d.provider.GetSnapshots(d.universe)
	if err != nil {
		// The one fatal failure: without a snapshot there is nothing to
		// evaluate and no honest mark, so the state stays as loaded.
		rlog.Printf("Market Data Error: %v", err)
		return rlog.String(), state, fmt.Errorf("fetch market snapshot: %w", err)
	}

	latestPrices := make(map[string]decimal.Decimal)

	for _, symbol := range d.universe {
		snap, ok := snaps[symbol]
		if !ok {
			continue
		}
		// Record the price before any further checks: even a symbol we
		// will not evaluate still marks the equity calculation.
		latestPrices[symbol] = snap.LastPrice
		if snap.PrevClose.IsZero() {
			continue
		}

		pct := snap.PctChange()
		if !d.engine.Eligible(&state, symbol, pct) {
			continue
		}

		rlog.Printf("   %s: $%s (%+.2f%%)", symbol, snap.LastPrice.StringFixed(2), pct)
		d.evaluateSymbol(ctx, snap, &state, today, rlog)
	}

	total := MarkToMarket(&state, latestPrices)
	UpsertEquityHistory(&state, today, total)
	d.store.Save(state)

	rlog.Printf("--- SCAN COMPLETE ---")
	rlog.Printf("New Cash Balance: $%s", state.Cash.StringFixed(2))
	rlog.Printf("Total Equity: $%s", total.StringFixed(2))

	return rlog.String(), state, nil
}

// evaluateSymbol fetches news and runs the engine for one symbol. A
// panic evaluating one symbol is contained here so the loop can proceed
// to the next.
func (d *Driver) evaluateSymbol(ctx context.Context, snap models.Snapshot, state *models.PortfolioState, today string, rlog *RunLog) {
	defer func() {
		if r := recover(); r != nil {
			rlog.Printf("      ERROR evaluating %s: %v (continuing)", snap.Symbol, r)
		}
	}()

	headlines, err := d.provider.GetNews(snap.Symbol, newsLimit)
	if err != nil {
		// No news is a valid advisory input; the prompt carries an
		// explicit no-news marker.
		rlog.Printf("      News fetch failed for %s: %v", snap.Symbol, err)
		headlines = nil
	}
	if len(headlines) > 0 {
		rlog.Printf("      News: %s", truncate(headlines[0], 60))
	}

	d.engine.EvaluateAndExecute(ctx, snap, state, headlines, d.worldContext, today, rlog)
}

func heldSymbols(state *models.PortfolioState) []string {
	symbols := make([]string, 0, len(state.Portfolio))
	for symbol := range state.Portfolio {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// truncate shortens a headline to n characters for the run log,
// counting runes so multi-byte text is never split mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
