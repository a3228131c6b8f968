package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultUniverse is the tracked market universe used when no watchlist
// file is configured. Order matters: the driver evaluates symbols in
// exactly this order, run over run.
var DefaultUniverse = []string{
	// Tech / Growth
	"AAPL", "TSLA", "NVDA", "AMD", "MSFT",
	"AMZN", "GOOGL", "META", "INTC", "PLTR",

	// Defensive / Value / Dow Jones
	"JPM", "V", "MA", "BAC",
	"JNJ", "PFE", "MRK", "UNH",
	"WMT", "PG", "KO", "PEP", "HD", "MCD",
	"XOM", "CVX", "ORCL",
}

// watchlistFile is the on-disk watchlist shape (YAML).
type watchlistFile struct {
	Universe     []string `yaml:"universe"`
	WorldContext string   `yaml:"world_context"`
}

// LoadWatchlist reads the tracked universe and an optional world-context
// blurb from a YAML file.
func LoadWatchlist(path string) ([]string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var wl watchlistFile
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return nil, "", fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	if len(wl.Universe) == 0 {
		return nil, "", fmt.Errorf("watchlist %s has an empty universe", path)
	}
	return wl.Universe, wl.WorldContext, nil
}
