package alpaca

import (
	"time"

	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// Provider implements the market.Provider interface for Alpaca.
// The SDK clients read APCA_API_KEY_ID / APCA_API_SECRET_KEY from the
// environment, which config.Load validated at startup.
type Provider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
}

// Ensure Provider implements the interface
var _ market.Provider = (*Provider)(nil)

// NewProvider returns a new Alpaca provider.
func NewProvider() *Provider {
	return &Provider{
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
	}
}

// GetSnapshots fetches one snapshot per symbol. Symbols missing a latest
// trade or a previous daily bar are dropped so the driver never sees a
// quote it cannot price.
func (p *Provider) GetSnapshots(symbols []string) (map[string]models.Snapshot, error) {
	snaps, err := p.mdClient.GetSnapshots(symbols, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.Snapshot, len(snaps))
	for symbol, s := range snaps {
		if s == nil || s.LatestTrade == nil || s.PrevDailyBar == nil {
			continue
		}
		result[symbol] = models.Snapshot{
			Symbol:    symbol,
			LastPrice: decimal.NewFromFloat(s.LatestTrade.Price),
			PrevClose: decimal.NewFromFloat(s.PrevDailyBar.Close),
		}
	}
	return result, nil
}

// GetNews returns recent headlines for the symbol, looking back 24h.
func (p *Provider) GetNews(symbol string, limit int) ([]string, error) {
	news, err := p.mdClient.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      time.Now().Add(-24 * time.Hour),
		TotalLimit: limit,
	})
	if err != nil {
		return nil, err
	}

	headlines := make([]string, 0, len(news))
	for _, n := range news {
		headlines = append(headlines, n.Headline)
	}
	return headlines, nil
}

func (p *Provider) GetClock() (*models.Clock, error) {
	c, err := p.tradeClient.GetClock()
	if err != nil {
		return nil, err
	}
	return &models.Clock{
		Timestamp: c.Timestamp,
		IsOpen:    c.IsOpen,
		NextOpen:  c.NextOpen,
		NextClose: c.NextClose,
	}, nil
}

// PlaceOrder submits a market order with day time-in-force. Market type
// is required for fractional quantities.
func (p *Provider) PlaceOrder(symbol string, qty decimal.Decimal, side string) (*models.Order, error) {
	o, err := p.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &qty,
		Side:        alpaca.Side(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, err
	}

	var orderQty decimal.Decimal
	if o.Qty != nil {
		orderQty = *o.Qty
	}
	return &models.Order{
		ID:        o.ID,
		Symbol:    o.Symbol,
		Qty:       orderQty,
		Side:      string(o.Side),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}, nil
}
