package models

import "github.com/shopspring/decimal"

// Position is a single holding inside the simulated portfolio.
// A symbol present in the portfolio map implies Qty > 0; a fully
// liquidated position is removed from the map, never zeroed.
type Position struct {
	Qty      decimal.Decimal `json:"qty"`       // Shares held (fractional, 4 dp)
	AvgPrice decimal.Decimal `json:"avg_price"` // Entry price for the whole position
}

// EquityPoint is one entry of the dated equity curve.
// The curve holds exactly one point per calendar date.
type EquityPoint struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Total decimal.Decimal `json:"total"`
}

// PortfolioState is the single persisted document of the simulation.
// It is loaded whole at the start of a run, mutated in place by approved
// trades, and written back whole. The JSON shape is an external contract:
// the report generator reads the same file.
type PortfolioState struct {
	StartDate     string              `json:"start_date"`
	Cash          decimal.Decimal     `json:"cash"`
	Portfolio     map[string]Position `json:"portfolio"`
	History       []string            `json:"history"` // Dated BOUGHT/SOLD lines, append-only
	EquityHistory []EquityPoint       `json:"equity_history"`
}

// Normalize backfills fields that older state documents may lack,
// so the rest of the code never has to nil-check the maps and slices.
func (s *PortfolioState) Normalize() {
	if s.Portfolio == nil {
		s.Portfolio = make(map[string]Position)
	}
	if s.History == nil {
		s.History = []string{}
	}
	if s.EquityHistory == nil {
		s.EquityHistory = []EquityPoint{}
	}
}
