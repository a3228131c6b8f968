package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper_trading/internal/advisor"
	"paper_trading/internal/config"
	"paper_trading/internal/logger"
	alpacamkt "paper_trading/internal/market/alpaca"
	"paper_trading/internal/sim"
	"paper_trading/internal/storage"
	"paper_trading/internal/telegram"

	"github.com/shopspring/decimal"
)

const LogFile = "sim_runner.log"

// main wires the collaborators together and drives the simulation on a
// schedule. With -once it behaves like a cron job: one pass, then exit.
func main() {
	once := flag.Bool("once", false, "run a single simulation pass and exit")
	flag.Parse()

	cfg := config.Load()
	logger.Setup(LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dependencies: state store, broker/market data, advisory oracle.
	store := storage.New(cfg.StateFile, decimal.NewFromFloat(cfg.StartingCash))
	provider := alpacamkt.NewProvider()

	var adv advisor.Advisor = advisor.Disabled{}
	if cfg.GeminiAPIKey != "" {
		g, err := advisor.NewGemini(ctx, cfg.GeminiModels)
		if err != nil {
			log.Printf("Advisor unavailable (%v); every evaluation degrades to HOLD", err)
		} else {
			adv = g
		}
	}

	driver := sim.NewDriver(store, provider, adv, cfg.Universe, cfg.WorldContext)

	if *once {
		runPass(ctx, driver)
		return
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutting down: system signal received.")
		cancel()
	}()

	log.Printf("Simulation runner started. Universe: %d symbols, interval: %d mins", len(cfg.Universe), cfg.PollIntervalMins)

	runPass(ctx, driver)

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Runner stopping...")
			return
		case <-ticker.C:
			runPass(ctx, driver)
		}
	}
}

// runPass executes one simulation run and pushes a short summary to
// Telegram. Run failures are logged; the runner stays alive for the
// next tick.
func runPass(ctx context.Context, driver *sim.Driver) {
	_, state, err := driver.Run(ctx)
	if err != nil {
		log.Printf("Run aborted: %v", err)
		return
	}

	summary := fmt.Sprintf("*Simulation run complete*\nCash: $%s | Positions: %d", state.Cash.StringFixed(2), len(state.Portfolio))
	if n := len(state.EquityHistory); n > 0 {
		summary += fmt.Sprintf("\nTotal Equity: $%s", state.EquityHistory[n-1].Total.StringFixed(2))
	}
	telegram.Notify(summary)
}
