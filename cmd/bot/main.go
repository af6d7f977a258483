package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitos/listing_sniper/internal/config"
	"github.com/vitos/listing_sniper/internal/infrastructure/exchange"
	"github.com/vitos/listing_sniper/internal/infrastructure/feed"
	"github.com/vitos/listing_sniper/internal/infrastructure/logger"
	"github.com/vitos/listing_sniper/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	mode := flag.String("mode", "testnet", "testnet or live")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using config and environment values")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *mode == "live" && os.Getenv("USE_TESTNET") == "" {
		cfg.Binance.Testnet = false
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting listing sniper",
		zap.String("mode", *mode),
		zap.Bool("testnet", cfg.Binance.Testnet),
		zap.Int("poll_interval_s", cfg.Watcher.PollIntervalS),
		zap.String("log_level", cfg.Logging.Level))

	adapter := exchange.NewBinanceAdapter(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet)

	// Trade activity also goes to its own file so fills survive scrollback.
	tradeLog, err := logger.NewFileLogger("sniper_trades.log", cfg.Logging.Level)
	if err != nil {
		log.Error("Failed to init trade logger, using default", zap.Error(err))
		tradeLog = log
	}
	pipeline := buildPipeline(adapter, cfg, tradeLog)

	feedClient := feed.NewClient(cfg.Watcher.AnnounceURL, log)
	watcher := usecase.NewWatcher(
		feedClient,
		time.Duration(cfg.Watcher.PollIntervalS)*time.Second,
		time.Duration(cfg.Watcher.MaxAgeMinutes)*time.Minute,
		pipeline.HandleListing,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
}

func buildPipeline(adapter *exchange.BinanceAdapter, cfg *config.Config, log *zap.Logger) *usecase.Pipeline {
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

	return usecase.NewPipeline(scorer, opener, monitor, cfg.Trade.ScoreThreshold, log)
}
