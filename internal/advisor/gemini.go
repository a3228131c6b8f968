package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// Gemini is the live Advisor backed by the Gemini API. It carries an
// ordered list of candidate models and sticks with the first one that
// answers; when the active model fails it falls through to the next
// candidate instead of degrading every evaluation to HOLD.
type Gemini struct {
	models []string
	active int // index of the model currently in use

	// generate performs one model call; swapped out in tests.
	generate func(ctx context.Context, model, prompt string) (string, error)
}

var _ Advisor = (*Gemini)(nil)

// NewGemini creates the Gemini advisor with an ordered model candidate
// list. The client reads GEMINI_API_KEY from the environment.
func NewGemini(ctx context.Context, models []string) (*Gemini, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("no advisor models configured")
	}
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g := &Gemini{models: models}
	g.generate = func(ctx context.Context, model, prompt string) (string, error) {
		cfg := &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.2),
			ResponseMIMEType: "application/json",
		}
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

// Decide asks the active model for a verdict in JSON mode, trying the
// remaining candidates in order on transport failure. A model that
// answers becomes the active one for subsequent requests.
func (g *Gemini) Decide(ctx context.Context, req Request) (Verdict, error) {
	prompt := buildPrompt(req)

	var lastErr error
	for i := g.active; i < len(g.models); i++ {
		text, err := g.generate(ctx, g.models[i], prompt)
		if err != nil {
			lastErr = fmt.Errorf("gemini generate (%s): %w", g.models[i], err)
			if i+1 < len(g.models) {
				log.Printf("Advisor model %s failed (%v), trying %s", g.models[i], err, g.models[i+1])
			}
			continue
		}
		if i != g.active {
			log.Printf("Advisor switched to model %s", g.models[i])
			g.active = i
		}
		return parseVerdict(text)
	}
	return Verdict{}, lastErr
}

// parseVerdict decodes the model's JSON answer and normalizes the
// decision. Anything outside {BUY, SELL, HOLD} is an error, which the
// engine treats the same as a transport failure.
func parseVerdict(text string) (Verdict, error) {
	var raw struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict %q: %w", text, err)
	}

	decision := Decision(strings.ToUpper(strings.TrimSpace(raw.Decision)))
	switch decision {
	case Buy, Sell, Hold:
	default:
		return Verdict{}, fmt.Errorf("invalid decision %q", raw.Decision)
	}

	return Verdict{Decision: decision, Reason: raw.Reason}, nil
}
