package advisor

import (
	"fmt"
	"strings"
)

// The strategy handed to the model. The engine does not trust the model
// to follow these rules; they only shape the advisory verdict.
var strategyRules = []string{
	"1. ANALYZE GLOBAL IMPACT & NEWS: Are there major headwinds? If NEWS is NEGATIVE, SELL/AVOID.",
	"2. TAKE PROFIT: If we own the stock AND price is > 5% above Avg Entry, SELL (Lock in gains).",
	"3. STOP LOSS: If we own the stock AND price is < 5% below Avg Entry, SELL (Stop the bleeding).",
	"4. DIP BUY: If we DO NOT own it: Price down > 2% (Overreaction) AND News is NOT Negative -> BUY.",
	"5. MOMENTUM: If we DO NOT own it: Price up > 3% (FOMO) -> BUY.",
	"6. HOLD: If none of the above trigger, HOLD.",
}

// buildPrompt renders the day-trader prompt for one symbol.
func buildPrompt(req Request) string {
	var newsText string
	if len(req.Headlines) > 0 {
		lines := make([]string, 0, len(req.Headlines))
		for _, h := range req.Headlines {
			lines = append(lines, "- "+h)
		}
		newsText = strings.Join(lines, "\n")
	} else {
		// Explicit marker so the model falls back to technicals instead
		// of inventing headlines.
		newsText = "NO SPECIFIC COMPANY NEWS FOUND."
	}

	worldText := "No global context provided."
	if req.WorldContext != "" {
		worldText = "Global Market Context:\n" + req.WorldContext
	}

	positionText := "WE DO NOT OWN THIS STOCK."
	if req.Position != nil && req.Position.Qty.IsPositive() {
		gainPct := 0.0
		if req.Position.AvgPrice.IsPositive() {
			gainPct = req.Price.Sub(req.Position.AvgPrice).Div(req.Position.AvgPrice).InexactFloat64() * 100
		}
		positionText = fmt.Sprintf("WE OWN THIS STOCK: %s shares @ $%s (Current Gain: %+.2f%%)",
			req.Position.Qty, req.Position.AvgPrice.StringFixed(2), gainPct)
	}

	return fmt.Sprintf(`Act as an Aggressive Day Trader. Manage a small simulated portfolio.

STOCK: %s
PRICE: $%s
CHANGE (24H): %.2f%%
POSITIONS:
%s

COMPANY NEWS:
%s

WORLD CONTEXT (Politics, Macroeconomics, Wars, Supply Chain):
%s

STRATEGY RULES:
%s

Output strictly valid JSON (Example):
{ "decision": "HOLD", "reason": "Price is flat, no significant news." }
`,
		req.Symbol,
		req.Price.StringFixed(2),
		req.PctChange,
		positionText,
		newsText,
		worldText,
		strings.Join(strategyRules, "\n"),
	)
}
