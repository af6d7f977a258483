package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const DefaultAnnounceURL = "https://www.binance.com/gateway-api/v1/public/cms/article/list"

type Config struct {
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`
	Trade struct {
		CapitalUSDT           float64 `yaml:"capital_usdt"`
		LeveragePreference    []int   `yaml:"leverage_preference"`
		StopLossPct           float64 `yaml:"stop_loss_pct"`
		TrailingActivationPct float64 `yaml:"trailing_activation_pct"`
		TrailingCallbackRate  float64 `yaml:"trailing_callback_rate"`
		TakeProfitPct         float64 `yaml:"take_profit_pct"`
		ScoreThreshold        float64 `yaml:"score_threshold"`
	} `yaml:"trade"`
	Watcher struct {
		PollIntervalS int    `yaml:"poll_interval_s"`
		MaxAgeMinutes int    `yaml:"max_age_minutes"`
		AnnounceURL   string `yaml:"announce_url"`
	} `yaml:"watcher"`
	Retry struct {
		SymbolReadyAttempts   int `yaml:"symbol_ready_attempts"`
		SymbolReadyIntervalMs int `yaml:"symbol_ready_interval_ms"`
	} `yaml:"retry"`
	Monitor struct {
		PollIntervalMs int `yaml:"poll_interval_ms"`
	} `yaml:"monitor"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads the yaml config, overlays environment variables and validates.
// Validation failures abort before any trading action.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("USE_TESTNET"); v != "" {
		c.Binance.Testnet = v == "true" || v == "True"
	}
	if v := os.Getenv("TRADE_USDT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trade.CapitalUSDT = f
		}
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watcher.PollIntervalS = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if len(c.Trade.LeveragePreference) == 0 {
		c.Trade.LeveragePreference = []int{50, 20, 10}
	}
	if c.Trade.CapitalUSDT == 0 {
		c.Trade.CapitalUSDT = 50
	}
	if c.Trade.StopLossPct == 0 {
		c.Trade.StopLossPct = 0.01
	}
	if c.Trade.TrailingActivationPct == 0 {
		c.Trade.TrailingActivationPct = 0.10
	}
	if c.Trade.TrailingCallbackRate == 0 {
		c.Trade.TrailingCallbackRate = 1.0
	}
	if c.Trade.ScoreThreshold == 0 {
		c.Trade.ScoreThreshold = 0.01
	}
	if c.Watcher.PollIntervalS == 0 {
		c.Watcher.PollIntervalS = 20
	}
	if c.Watcher.MaxAgeMinutes == 0 {
		c.Watcher.MaxAgeMinutes = 120
	}
	if c.Watcher.AnnounceURL == "" {
		c.Watcher.AnnounceURL = DefaultAnnounceURL
	}
	if c.Retry.SymbolReadyAttempts == 0 {
		c.Retry.SymbolReadyAttempts = 20
	}
	if c.Retry.SymbolReadyIntervalMs == 0 {
		c.Retry.SymbolReadyIntervalMs = 500
	}
	if c.Monitor.PollIntervalMs == 0 {
		c.Monitor.PollIntervalMs = 800
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		return fmt.Errorf("missing binance api credentials")
	}
	if c.Trade.CapitalUSDT <= 0 {
		return fmt.Errorf("trade.capital_usdt must be positive")
	}
	for _, lev := range c.Trade.LeveragePreference {
		if lev <= 0 {
			return fmt.Errorf("invalid leverage %d in preference list", lev)
		}
	}
	if c.Trade.StopLossPct < 0 || c.Trade.StopLossPct >= 1 {
		return fmt.Errorf("trade.stop_loss_pct out of range")
	}
	return nil
}
