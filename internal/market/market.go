package market

import (
	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

// Provider is the market-data and broker collaborator the simulation
// talks to. Keeping it as an interface lets tests script quotes and spy
// on order submission without any network access, and would let another
// broker replace Alpaca without touching the engine.
type Provider interface {
	// GetSnapshots returns the latest trade price and previous daily
	// close for each requested symbol. Symbols with no data are simply
	// omitted from the result, not errored.
	GetSnapshots(symbols []string) (map[string]models.Snapshot, error)

	// GetNews returns up to limit recent headlines for the symbol.
	// Failures degrade to an empty slice at the call site.
	GetNews(symbol string, limit int) ([]string, error)

	// GetClock reports whether the venue is currently open.
	GetClock() (*models.Clock, error)

	// PlaceOrder submits a day market order. Side is "buy" or "sell".
	PlaceOrder(symbol string, qty decimal.Decimal, side string) (*models.Order, error)
}
