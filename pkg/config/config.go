package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Trading modes. CONSERVATIVE sizes orders from TradeAmountCents; YOLO uses
// a fixed ten dollars per leg.
const (
	ModeConservative = "CONSERVATIVE"
	ModeYolo         = "YOLO"
)

// YoloTradeDollars is the fixed per-leg notional in YOLO mode.
const YoloTradeDollars = 10.0

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue A (Polymarket-style CLOB)
	GammaAPIURL    string
	ClobAPIURL     string
	WSURL          string
	PolyProxyURL   string // optional geo proxy for order placement
	PolyProxyToken string
	PrivateKey     string // hex, direct CLOB signing path
	ClobAPIKey     string
	ClobSecret     string
	ClobPassphrase string

	// Venue B (Kalshi-style centralized)
	KalshiAPIURL         string
	KalshiAPIKeyID       string
	KalshiPrivateKeyPEM  string // inline PEM, wins over the path
	KalshiPrivateKeyPath string

	// Detection thresholds
	MinProfitCents    int
	MinPriceThreshold int
	TopNOpportunities int
	MatchingThreshold float64
	TotalFeeCents     int
	AlertThresholdCents int

	// Execution
	TradingMode           string
	TradeAmountCents      int
	DryRun                bool
	LiquiditySafetyMargin float64
	MinOrderDollars       float64
	OrderTimeout          time.Duration
	ProbeTimeout          time.Duration

	// Orchestration intervals
	MarketRefresh   time.Duration
	ScanInterval    time.Duration
	KalshiPoll      time.Duration
	ResolutionCheck time.Duration
	TradeCooldown   time.Duration
	MarketLimit     int

	// Alerting
	AlertWebhookURL string
	AlertCooldown   time.Duration
	AlertBatchDelay time.Duration

	// Same-market (btc15m) track
	BTC15M BTC15MConfig

	// Circuit breaker
	MinBalanceThreshold float64

	// WebSocket
	WSPoolSize              int
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Storage
	StorageMode string // "console", "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
}

// BTC15MConfig holds the same-market track settings. A YAML strategy file
// named by BTC15M_STRATEGY_FILE overrides the env values.
type BTC15MConfig struct {
	TargetPairCost        float64
	OrderSize             float64
	ScanInterval          time.Duration
	MarketRefresh         time.Duration
	Tickers               []string
	MaxPositionsPerMarket int
	MaxPositionsTotal     int
	MinTimeRemaining      time.Duration
	Cooldown              time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Venue A defaults
		GammaAPIURL:    getEnvOrDefault("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		ClobAPIURL:     getEnvOrDefault("CLOB_API_URL", "https://clob.polymarket.com"),
		WSURL:          getEnvOrDefault("WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolyProxyURL:   os.Getenv("POLY_PROXY_URL"),
		PolyProxyToken: os.Getenv("POLY_PROXY_TOKEN"),
		PrivateKey:     os.Getenv("PRIVATE_KEY"),
		ClobAPIKey:     os.Getenv("CLOB_API_KEY"),
		ClobSecret:     os.Getenv("CLOB_SECRET"),
		ClobPassphrase: os.Getenv("CLOB_PASSPHRASE"),

		// Venue B defaults
		KalshiAPIURL:         getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com"),
		KalshiAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPEM:  os.Getenv("KALSHI_PRIVATE_KEY_PEM"),
		KalshiPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),

		// Detection defaults
		MinProfitCents:      getIntOrDefault("MIN_PROFIT_CENTS", 2),
		MinPriceThreshold:   getIntOrDefault("MIN_PRICE_THRESHOLD", 2),
		TopNOpportunities:   getIntOrDefault("TOP_N_OPPORTUNITIES", 10),
		MatchingThreshold:   getFloat64OrDefault("MATCHING_THRESHOLD", 0.7),
		TotalFeeCents:       getIntOrDefault("TOTAL_FEE_CENTS", 0),
		AlertThresholdCents: getIntOrDefault("ALERT_THRESHOLD_CENTS", 5),

		// Execution defaults
		TradingMode:           getEnvOrDefault("TRADING_MODE", ModeConservative),
		TradeAmountCents:      getIntOrDefault("TRADE_AMOUNT_CENTS", 500),
		DryRun:                getBoolOrDefault("DRY_RUN", true),
		LiquiditySafetyMargin: getFloat64OrDefault("LIQUIDITY_SAFETY_MARGIN", 0.5),
		MinOrderDollars:       getFloat64OrDefault("MIN_ORDER_DOLLARS", 1.10),
		OrderTimeout:          getDurationOrDefault("ORDER_TIMEOUT", 15*time.Second),
		ProbeTimeout:          getDurationOrDefault("PROBE_TIMEOUT", 10*time.Second),

		// Orchestration defaults
		MarketRefresh:   getMillisOrDefault("MARKET_REFRESH_MS", 60*time.Second),
		ScanInterval:    getMillisOrDefault("SCAN_INTERVAL_MS", 5*time.Second),
		KalshiPoll:      getMillisOrDefault("KALSHI_POLL_MS", 5*time.Second),
		ResolutionCheck: getMillisOrDefault("RESOLUTION_CHECK_MS", 5*time.Minute),
		TradeCooldown:   getMillisOrDefault("TRADE_COOLDOWN_MS", 10*time.Second),
		MarketLimit:     getIntOrDefault("MARKET_LIMIT", 200),

		// Alerting defaults
		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		AlertCooldown:   getMillisOrDefault("ALERT_COOLDOWN_MS", 60*time.Second),
		AlertBatchDelay: getMillisOrDefault("ALERT_BATCH_DELAY_MS", 5*time.Second),

		// Same-market track defaults
		BTC15M: BTC15MConfig{
			TargetPairCost:        getFloat64OrDefault("BTC15M_TARGET_PAIR_COST", 0.97),
			OrderSize:             getFloat64OrDefault("BTC15M_ORDER_SIZE", 10),
			ScanInterval:          getMillisOrDefault("BTC15M_SCAN_INTERVAL_MS", 5*time.Second),
			MarketRefresh:         getMillisOrDefault("BTC15M_MARKET_REFRESH_MS", 60*time.Second),
			Tickers:               getListOrDefault("BTC15M_TICKERS", nil),
			MaxPositionsPerMarket: getIntOrDefault("BTC15M_MAX_POSITIONS_PER_MARKET", 1),
			MaxPositionsTotal:     getIntOrDefault("BTC15M_MAX_POSITIONS_TOTAL", 10),
			MinTimeRemaining:      getMillisOrDefault("BTC15M_MIN_TIME_REMAINING_MS", 2*time.Minute),
			Cooldown:              getMillisOrDefault("BTC15M_COOLDOWN_MS", 10*time.Second),
		},

		// Circuit breaker defaults
		MinBalanceThreshold: getFloat64OrDefault("MIN_BALANCE_THRESHOLD", 25.0),

		// WebSocket defaults
		WSPoolSize:              getIntOrDefault("WS_POOL_SIZE", 1),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 5*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Storage defaults
		StorageMode: getEnvOrDefault("STORAGE_MODE", "console"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "crossarb.db"),
	}

	if path := os.Getenv("BTC15M_STRATEGY_FILE"); path != "" {
		err := cfg.BTC15M.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load btc15m strategy file: %w", err)
		}
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.GammaAPIURL == "" || c.ClobAPIURL == "" || c.WSURL == "" {
		return fmt.Errorf("venue A API URLs cannot be empty")
	}

	if c.KalshiAPIURL == "" {
		return fmt.Errorf("KALSHI_API_URL cannot be empty")
	}

	if c.MinProfitCents < 1 {
		return fmt.Errorf("MIN_PROFIT_CENTS must be >= 1, got %d", c.MinProfitCents)
	}

	if c.MinPriceThreshold < 0 || c.MinPriceThreshold >= 100 {
		return fmt.Errorf("MIN_PRICE_THRESHOLD must be in [0,100), got %d", c.MinPriceThreshold)
	}

	if c.MatchingThreshold <= 0 || c.MatchingThreshold > 1 {
		return fmt.Errorf("MATCHING_THRESHOLD must be in (0,1], got %f", c.MatchingThreshold)
	}

	if c.TradingMode != ModeConservative && c.TradingMode != ModeYolo {
		return fmt.Errorf("TRADING_MODE must be %q or %q, got %q", ModeConservative, ModeYolo, c.TradingMode)
	}

	if c.LiquiditySafetyMargin <= 0 || c.LiquiditySafetyMargin > 1 {
		return fmt.Errorf("LIQUIDITY_SAFETY_MARGIN must be in (0,1], got %f", c.LiquiditySafetyMargin)
	}

	if c.MinOrderDollars < 0 {
		return fmt.Errorf("MIN_ORDER_DOLLARS cannot be negative, got %f", c.MinOrderDollars)
	}

	if c.BTC15M.TargetPairCost <= 0 || c.BTC15M.TargetPairCost >= 1 {
		return fmt.Errorf("BTC15M_TARGET_PAIR_COST must be in (0,1), got %f", c.BTC15M.TargetPairCost)
	}

	if c.BTC15M.OrderSize <= 0 {
		return fmt.Errorf("BTC15M_ORDER_SIZE must be positive, got %f", c.BTC15M.OrderSize)
	}

	switch c.StorageMode {
	case "console", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL required when STORAGE_MODE=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_MODE must be console, postgres or sqlite, got %q", c.StorageMode)
	}

	return nil
}

// TradeDollars returns the per-leg notional implied by the trading mode.
func (c *Config) TradeDollars() float64 {
	if c.TradingMode == ModeYolo {
		return YoloTradeDollars
	}

	return float64(c.TradeAmountCents) / 100.0
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getMillisOrDefault reads an integer-millisecond env var. The _MS keys are
// plain integers, not Go duration strings.
func getMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}

// getListOrDefault reads a comma-separated env var.
func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return defaultValue
	}

	return out
}
