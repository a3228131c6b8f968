package sim

import (
	"context"
	"fmt"
	"testing"

	"paper_trading/internal/advisor"
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

// --- Test doubles ---

type placedOrder struct {
	Symbol string
	Qty    decimal.Decimal
	Side   string
}

// mockProvider scripts market data and spies on order submission.
type mockProvider struct {
	snapshots   map[string]models.Snapshot
	snapshotErr error
	clock       models.Clock
	clockErr    error
	news        map[string][]string
	newsErr     error
	orders      []placedOrder
	orderErr    error
}

func (m *mockProvider) GetSnapshots(symbols []string) (map[string]models.Snapshot, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	return m.snapshots, nil
}

func (m *mockProvider) GetNews(symbol string, limit int) ([]string, error) {
	if m.newsErr != nil {
		return nil, m.newsErr
	}
	return m.news[symbol], nil
}

func (m *mockProvider) GetClock() (*models.Clock, error) {
	if m.clockErr != nil {
		return nil, m.clockErr
	}
	c := m.clock
	return &c, nil
}

func (m *mockProvider) PlaceOrder(symbol string, qty decimal.Decimal, side string) (*models.Order, error) {
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	m.orders = append(m.orders, placedOrder{Symbol: symbol, Qty: qty, Side: side})
	return &models.Order{ID: "mock_order_id", Symbol: symbol, Qty: qty, Side: side, Status: "new"}, nil
}

// scriptedAdvisor returns canned verdicts per symbol, counts calls and
// remembers the last request it saw.
type scriptedAdvisor struct {
	verdicts map[string]advisor.Verdict
	err      error
	calls    int
	lastReq  advisor.Request
}

func (a *scriptedAdvisor) Decide(ctx context.Context, req advisor.Request) (advisor.Verdict, error) {
	a.calls++
	a.lastReq = req
	if a.err != nil {
		return advisor.Verdict{}, a.err
	}
	if v, ok := a.verdicts[req.Symbol]; ok {
		return v, nil
	}
	return advisor.Verdict{Decision: advisor.Hold, Reason: "no script"}, nil
}

// spyStore keeps state in memory and counts saves.
type spyStore struct {
	state models.PortfolioState
	saves int
}

func (s *spyStore) Load() models.PortfolioState { return s.state }

func (s *spyStore) Save(st models.PortfolioState) {
	s.state = st
	s.saves++
}

func newState(cash float64) models.PortfolioState {
	s := models.PortfolioState{StartDate: "2025-01-01", Cash: decimal.NewFromFloat(cash)}
	s.Normalize()
	return s
}

func snap(symbol string, last, prev float64) models.Snapshot {
	return models.Snapshot{
		Symbol:    symbol,
		LastPrice: decimal.NewFromFloat(last),
		PrevClose: decimal.NewFromFloat(prev),
	}
}

// --- Pre-filter ---

func TestEligible(t *testing.T) {
	e := NewEngine(&mockProvider{}, &scriptedAdvisor{}, &spyStore{})

	state := newState(1000)
	if e.Eligible(&state, "KO", 1.0) {
		t.Error("Not held and only 1.0% move: must be skipped")
	}
	// Strict comparison: exactly 1.5% does not pass.
	if e.Eligible(&state, "KO", 1.5) {
		t.Error("Exactly 1.5% must not pass the strict > filter")
	}
	if !e.Eligible(&state, "KO", 1.6) {
		t.Error("1.6% move must pass")
	}
	if !e.Eligible(&state, "KO", -1.6) {
		t.Error("-1.6% move must pass (absolute value)")
	}

	state.Portfolio["KO"] = models.Position{Qty: decimal.NewFromInt(1), AvgPrice: decimal.NewFromInt(60)}
	if !e.Eligible(&state, "KO", 0.1) {
		t.Error("Held symbols are always evaluated")
	}
}

// --- Buy path ---

func TestBuy_SizingAndLedger(t *testing.T) {
	// Cash $1000, NVDA at $100 vs prev close $94 (+6.4%), advisor says BUY.
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"NVDA": {Decision: advisor.Buy, Reason: "Momentum breakout"},
	}}
	store := &spyStore{}
	e := NewEngine(provider, adv, store)

	state := newState(1000)
	outcome := e.EvaluateAndExecute(context.Background(), snap("NVDA", 100, 94), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBought {
		t.Fatalf("Expected OutcomeBought, got %v", outcome)
	}

	// qty = round(1000*0.25/100, 4) = 2.5
	pos, ok := state.Portfolio["NVDA"]
	if !ok {
		t.Fatal("Expected NVDA position")
	}
	if !pos.Qty.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("Expected qty 2.5, got %s", pos.Qty)
	}
	if !pos.AvgPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected avg price 100, got %s", pos.AvgPrice)
	}
	if !state.Cash.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected cash 750, got %s", state.Cash)
	}

	// Invested amount never exceeds the 25% budget.
	if pos.Qty.Mul(pos.AvgPrice).GreaterThan(decimal.NewFromInt(250)) {
		t.Errorf("Cost %s exceeds 25%% budget", pos.Qty.Mul(pos.AvgPrice))
	}

	if len(state.History) != 1 || state.History[0] != "2025-06-02: BOUGHT 2.5 NVDA" {
		t.Errorf("Unexpected history: %v", state.History)
	}

	// Order submitted to the broker before the ledger moved.
	if len(provider.orders) != 1 || provider.orders[0].Side != "buy" || !provider.orders[0].Qty.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("Unexpected orders: %+v", provider.orders)
	}
	if store.saves != 1 {
		t.Errorf("Expected exactly one save after the buy, got %d", store.saves)
	}
}

func TestBuy_QtyRoundedToFourPlaces(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Buy, Reason: "Dip"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	// invest = 250, price 150 -> 1.666666... rounds to 1.6667
	state := newState(1000)
	e.EvaluateAndExecute(context.Background(), snap("AAPL", 150, 160), &state, nil, "", "2025-06-02", NewRunLog())

	pos := state.Portfolio["AAPL"]
	if !pos.Qty.Equal(decimal.NewFromFloat(1.6667)) {
		t.Errorf("Expected qty 1.6667, got %s", pos.Qty)
	}
}

func TestBuy_RejectedBelowMinimumTrade(t *testing.T) {
	// Cash $30 -> invest $7.50 < $10 minimum.
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"NVDA": {Decision: advisor.Buy, Reason: "Momentum"},
	}}
	store := &spyStore{}
	e := NewEngine(provider, adv, store)

	state := newState(30)
	outcome := e.EvaluateAndExecute(context.Background(), snap("NVDA", 100, 94), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBlocked {
		t.Fatalf("Expected OutcomeBlocked, got %v", outcome)
	}
	if !state.Cash.Equal(decimal.NewFromInt(30)) || len(state.Portfolio) != 0 || len(state.History) != 0 {
		t.Error("Blocked buy must not mutate state")
	}
	if len(provider.orders) != 0 {
		t.Error("Blocked buy must not reach the broker")
	}
	if store.saves != 0 {
		t.Error("Blocked buy must not persist")
	}
}

func TestBuy_WashTradePrevention(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Buy, Reason: "Looks cheap again"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	state := newState(1000)
	state.History = append(state.History, "2025-06-02: SOLD AAPL")

	outcome := e.EvaluateAndExecute(context.Background(), snap("AAPL", 150, 160), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBlocked {
		t.Fatalf("Expected wash-trade block, got %v", outcome)
	}
	if len(provider.orders) != 0 || len(state.Portfolio) != 0 {
		t.Error("Wash-trade rule must block regardless of advisory output")
	}
}

func TestBuy_SoldOnEarlierDateDoesNotBlock(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Buy, Reason: "Re-entry"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	state := newState(1000)
	state.History = append(state.History, "2025-06-01: SOLD AAPL")

	outcome := e.EvaluateAndExecute(context.Background(), snap("AAPL", 150, 160), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBought {
		t.Fatalf("Yesterday's sale must not block today's buy, got %v", outcome)
	}
}

func TestBuy_RejectedWhileHolding(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"NVDA": {Decision: advisor.Buy, Reason: "More momentum"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	state := newState(750)
	state.Portfolio["NVDA"] = models.Position{Qty: decimal.NewFromFloat(2.5), AvgPrice: decimal.NewFromInt(100)}

	outcome := e.EvaluateAndExecute(context.Background(), snap("NVDA", 110, 100), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBlocked {
		t.Fatalf("Expected already-owned block, got %v", outcome)
	}
	pos := state.Portfolio["NVDA"]
	if !pos.Qty.Equal(decimal.NewFromFloat(2.5)) || !pos.AvgPrice.Equal(decimal.NewFromInt(100)) {
		t.Error("Existing position must be untouched")
	}
}

func TestBuy_BrokerFailureLeavesLedgerUntouched(t *testing.T) {
	provider := &mockProvider{orderErr: fmt.Errorf("alpaca: 403 forbidden")}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"NVDA": {Decision: advisor.Buy, Reason: "Momentum"},
	}}
	store := &spyStore{}
	e := NewEngine(provider, adv, store)

	state := newState(1000)
	outcome := e.EvaluateAndExecute(context.Background(), snap("NVDA", 100, 94), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeFailed {
		t.Fatalf("Expected OutcomeFailed, got %v", outcome)
	}
	if !state.Cash.Equal(decimal.NewFromInt(1000)) || len(state.Portfolio) != 0 || len(state.History) != 0 {
		t.Error("Failed order submission must not mutate the ledger")
	}
	if store.saves != 0 {
		t.Error("Failed order submission must not persist")
	}
}

// --- Sell path ---

func TestSell_FullLiquidation(t *testing.T) {
	// Holding 5 AAPL @ $150, now $165 -> proceeds $825.
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Sell, Reason: "Take profit at +10%"},
	}}
	store := &spyStore{}
	e := NewEngine(provider, adv, store)

	state := newState(100)
	state.Portfolio["AAPL"] = models.Position{Qty: decimal.NewFromInt(5), AvgPrice: decimal.NewFromInt(150)}

	outcome := e.EvaluateAndExecute(context.Background(), snap("AAPL", 165, 150), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeSold {
		t.Fatalf("Expected OutcomeSold, got %v", outcome)
	}
	if _, held := state.Portfolio["AAPL"]; held {
		t.Error("Position must be removed entirely, not zeroed")
	}
	if !state.Cash.Equal(decimal.NewFromInt(925)) {
		t.Errorf("Expected cash 925 (100 + 825), got %s", state.Cash)
	}
	if len(state.History) != 1 || state.History[0] != "2025-06-02: SOLD AAPL" {
		t.Errorf("Unexpected history: %v", state.History)
	}
	if len(provider.orders) != 1 || provider.orders[0].Side != "sell" || !provider.orders[0].Qty.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected a sell order for the full quantity, got %+v", provider.orders)
	}
	if store.saves != 1 {
		t.Errorf("Expected exactly one save after the sell, got %d", store.saves)
	}
}

func TestSell_RejectedWithoutPosition(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Sell, Reason: "Panic"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	state := newState(1000)
	outcome := e.EvaluateAndExecute(context.Background(), snap("AAPL", 150, 160), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeBlocked {
		t.Fatalf("Expected OutcomeBlocked, got %v", outcome)
	}
	if !state.Cash.Equal(decimal.NewFromInt(1000)) || len(provider.orders) != 0 {
		t.Error("Sell without a position must be a pure no-op")
	}
}

func TestSell_BrokerFailureKeepsPosition(t *testing.T) {
	provider := &mockProvider{orderErr: fmt.Errorf("alpaca: timeout")}
	adv := &scriptedAdvisor{verdicts: map[string]advisor.Verdict{
		"AAPL": {Decision: advisor.Sell, Reason: "Stop loss"},
	}}
	e := NewEngine(provider, adv, &spyStore{})

	state := newState(100)
	state.Portfolio["AAPL"] = models.Position{Qty: decimal.NewFromInt(5), AvgPrice: decimal.NewFromInt(150)}

	outcome := e.EvaluateAndExecute(context.Background(), snap("AAPL", 140, 150), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeFailed {
		t.Fatalf("Expected OutcomeFailed, got %v", outcome)
	}
	if _, held := state.Portfolio["AAPL"]; !held {
		t.Error("Position must survive a failed sell submission")
	}
	if !state.Cash.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Cash must be unchanged, got %s", state.Cash)
	}
}

// --- Advisory degradation ---

func TestAdvisoryFailureDegradesToHold(t *testing.T) {
	provider := &mockProvider{}
	adv := &scriptedAdvisor{err: fmt.Errorf("gemini: 429 quota exceeded")}
	store := &spyStore{}
	e := NewEngine(provider, adv, store)

	state := newState(1000)
	outcome := e.EvaluateAndExecute(context.Background(), snap("NVDA", 100, 94), &state, nil, "", "2025-06-02", NewRunLog())

	if outcome != OutcomeHeld {
		t.Fatalf("Expected HOLD on advisory failure, got %v", outcome)
	}
	if !state.Cash.Equal(decimal.NewFromInt(1000)) || len(state.Portfolio) != 0 {
		t.Error("Degraded HOLD must not mutate state")
	}
	if len(provider.orders) != 0 || store.saves != 0 {
		t.Error("Degraded HOLD must not trade or persist")
	}
}
