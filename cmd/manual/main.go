// Manual trigger: run the listing pipeline once for a known symbol at a
// scheduled UTC instant, without the announcement watcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/config"
	"github.com/vitos/listing_sniper/internal/infrastructure/exchange"
	"github.com/vitos/listing_sniper/internal/infrastructure/logger"
	"github.com/vitos/listing_sniper/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "futures symbol to trade, e.g. XYZUSDT")
	at := flag.String("at", "", "UTC execution time, RFC3339 (e.g. 2026-01-02T15:04:05Z); empty runs immediately")
	flag.Parse()

	if *symbol == "" {
		fmt.Println("missing -symbol")
		os.Exit(1)
	}

	var runAt time.Time
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Printf("unparseable -at time %q: %v\n", *at, err)
			os.Exit(1)
		}
		runAt = t.UTC()
	}

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using config and environment values")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !runAt.IsZero() {
		wait := time.Until(runAt)
		if wait > 0 {
			log.Info("Sleeping until scheduled execution",
				zap.String("symbol", *symbol),
				zap.Time("run_at", runAt),
				zap.Duration("wait", wait))
			time.Sleep(wait)
		}
	}

	adapter := exchange.NewBinanceAdapter(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet)
	sizing := usecase.NewSizingEngine(adapter, log)
	opener := usecase.NewOpener(adapter, sizing, usecase.OpenerConfig{
		CapitalUSDT:           cfg.Trade.CapitalUSDT,
		LeveragePreference:    cfg.Trade.LeveragePreference,
		StopLossPct:           cfg.Trade.StopLossPct,
		TrailingActivationPct: cfg.Trade.TrailingActivationPct,
		TrailingCallbackRate:  cfg.Trade.TrailingCallbackRate,
		TakeProfitPct:         cfg.Trade.TakeProfitPct,
		SymbolReadyAttempts:   cfg.Retry.SymbolReadyAttempts,
		SymbolReadyInterval:   time.Duration(cfg.Retry.SymbolReadyIntervalMs) * time.Millisecond,
	}, log)
	scorer := usecase.NewScorer(adapter, log)
	monitor := usecase.NewMonitor(adapter, time.Duration(cfg.Monitor.PollIntervalMs)*time.Millisecond, log)
	pipeline := usecase.NewPipeline(scorer, opener, monitor, cfg.Trade.ScoreThreshold, log)

	if err := pipeline.Run(context.Background(), *symbol); err != nil {
		log.Fatal("Manual run failed", zap.String("symbol", *symbol), zap.Error(err))
	}
}
