package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// defaultGeminiModels is the advisor candidate list, tried in order.
var defaultGeminiModels = []string{"gemini-2.0-flash", "gemini-1.5-flash"}

// Config holds everything the runner needs. It is built once at startup
// and passed down explicitly; nothing reads the environment after Load.
type Config struct {
	StateFile    string  // Path of the persisted portfolio document
	StartingCash float64 // Seed cash for a fresh document

	Universe     []string // Tracked symbols, in fixed evaluation order
	WorldContext string   // Free-text macro context handed to the advisor

	GeminiAPIKey string
	GeminiModels []string // Ordered candidate list; the advisor falls through on failure

	PollIntervalMins int
	MaxLogSizeMB     int64
	MaxLogBackups    int
}

// Load reads a .env file (if present), validates the required broker
// credentials and assembles the configuration with defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	// Broker credentials are hard requirements: without market data the
	// simulation cannot even run read-only.
	required := []string{"APCA_API_KEY_ID", "APCA_API_SECRET_KEY"}
	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	cfg := &Config{
		StateFile:        getEnvAsString("SIM_STATE_FILE", "portfolio_ai_state.json"),
		StartingCash:     getEnvAsFloat64("SIM_STARTING_CASH", 1000.0),
		WorldContext:     os.Getenv("SIM_WORLD_CONTEXT"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModels:     getEnvAsList("GEMINI_MODEL", defaultGeminiModels),
		PollIntervalMins: getEnvAsInt("SIM_POLL_INTERVAL_MINS", 60),
		MaxLogSizeMB:     int64(getEnvAsInt("SIM_MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups:    getEnvAsInt("SIM_MAX_LOG_BACKUPS", 3),
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set. Advisory is disabled; every evaluation degrades to HOLD.")
	}

	// The universe comes from an optional watchlist file, falling back to
	// the built-in default list.
	universe, worldCtx, err := LoadWatchlist(getEnvAsString("SIM_WATCHLIST_FILE", "watchlist.yaml"))
	if err != nil {
		log.Printf("Watchlist not loaded (%v), using default universe of %d symbols", err, len(DefaultUniverse))
		universe = DefaultUniverse
	}
	cfg.Universe = universe
	if cfg.WorldContext == "" {
		cfg.WorldContext = worldCtx
	}

	logMasked("APCA_API_KEY_ID")
	logMasked("GEMINI_API_KEY")

	return cfg
}

// logMasked echoes a secret with all but the last 4 chars hidden, so a
// startup log still tells which credentials were picked up.
func logMasked(key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	masked := "***"
	if len(val) > 4 {
		masked = "***" + val[len(val)-4:]
	}
	log.Printf("%s=%s", key, masked)
}
