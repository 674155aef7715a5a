package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/alerting"
	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/circuitbreaker"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/feed"
	"github.com/mselser95/crossmarket-arb/internal/matching"
	"github.com/mselser95/crossmarket-arb/internal/orchestrator"
	"github.com/mselser95/crossmarket-arb/internal/storage"
	"github.com/mselser95/crossmarket-arb/internal/venue/kalshi"
	"github.com/mselser95/crossmarket-arb/internal/venue/polymarket"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/healthprobe"
	"github.com/mselser95/crossmarket-arb/pkg/httpserver"
	"github.com/mselser95/crossmarket-arb/pkg/types"
	"github.com/mselser95/crossmarket-arb/pkg/websocket"
)

// New creates the application. Missing trading credentials degrade to a
// read-only engine rather than failing: the executor surfaces the gap on
// the first live placement attempt.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:    cfg,
		logger: logger,
		health: healthprobe.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	a.alerter = setupAlerter(cfg, logger)

	store, err := storage.New(storage.Config{
		Mode:        cfg.StorageMode,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}
	a.store = store

	polyClient := polymarket.NewClient(polymarket.ClientConfig{
		GammaURL: cfg.GammaAPIURL,
		ClobURL:  cfg.ClobAPIURL,
		Logger:   logger,
	})

	polyTrader, err := polymarket.NewTrader(polymarket.TraderConfig{
		ClobURL:    cfg.ClobAPIURL,
		ProxyURL:   cfg.PolyProxyURL,
		ProxyToken: cfg.PolyProxyToken,
		PrivateKey: cfg.PrivateKey,
		APIKey:     cfg.ClobAPIKey,
		Secret:     cfg.ClobSecret,
		Passphrase: cfg.ClobPassphrase,
		Logger:     logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue A trader: %w", err)
	}

	a.kalshi, err = kalshi.NewClient(kalshi.Config{
		BaseURL:        cfg.KalshiAPIURL,
		APIKeyID:       cfg.KalshiAPIKeyID,
		PrivateKeyPEM:  cfg.KalshiPrivateKeyPEM,
		PrivateKeyPath: cfg.KalshiPrivateKeyPath,
		Logger:         logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue B client: %w", err)
	}

	a.wsPool = setupStreamPool(cfg, logger)
	a.quotes = feed.New(feed.Config{
		Logger:       logger,
		Books:        a.wsPool.Books(),
		PriceChanges: a.wsPool.PriceChanges(),
	})

	a.breaker, err = setupBreaker(cfg, logger, a.kalshi, a.alerter)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	a.executor = execution.New(execution.Config{
		DryRun:                cfg.DryRun,
		MinOrderDollars:       cfg.MinOrderDollars,
		LiquiditySafetyMargin: cfg.LiquiditySafetyMargin,
		OrderTimeout:          cfg.OrderTimeout,
		ProbeTimeout:          cfg.ProbeTimeout,
		TraderA:               &venueATrader{client: polyClient, trader: polyTrader},
		TraderB:               a.kalshi,
		Alerter:               a.alerter,
		Logger:                logger,
	})

	a.engine = setupEngine(cfg, logger, a, polyClient)

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.health,
		Engine:        a.engine,
		Executor:      a.executor,
	})

	a.health.RegisterCheck("venue-a-stream", a.wsPool.Connected)

	return a, nil
}

func setupAlerter(cfg *config.Config, logger *zap.Logger) *alerting.Manager {
	return alerting.New(alerting.Config{
		WebhookURL: cfg.AlertWebhookURL,
		Cooldown:   cfg.AlertCooldown,
		BatchDelay: cfg.AlertBatchDelay,
		Logger:     logger,
	})
}

func setupStreamPool(cfg *config.Config, logger *zap.Logger) *websocket.Pool {
	return websocket.NewPool(websocket.PoolConfig{
		Size:                  cfg.WSPoolSize,
		WSUrl:                 cfg.WSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
}

// setupBreaker creates the venue B balance breaker. Without signed venue B
// access there is no balance to watch, so live trading runs ungated and a
// warning says so.
func setupBreaker(cfg *config.Config, logger *zap.Logger, balances *kalshi.Client, alerter *alerting.Manager) (*circuitbreaker.BalanceBreaker, error) {
	if !balances.CanTrade() {
		logger.Warn("circuit-breaker-disabled",
			zap.String("reason", "venue B credentials not configured"))
		return nil, nil
	}

	return circuitbreaker.New(circuitbreaker.Config{
		MinBalance: cfg.MinBalanceThreshold,
		Fetcher:    balances,
		Alerter:    alerter,
		Logger:     logger,
	})
}

func setupEngine(cfg *config.Config, logger *zap.Logger, a *App, polyClient *polymarket.Client) *orchestrator.Service {
	evaluator := arbitrage.New(arbitrage.Config{
		MinProfitCents:    cfg.MinProfitCents,
		MinPriceThreshold: cfg.MinPriceThreshold,
		FeeCents:          cfg.TotalFeeCents,
		Logger:            logger,
	})

	matcher := matching.New(matching.Config{
		Threshold: cfg.MatchingThreshold,
		Logger:    logger,
	})

	var track *orchestrator.SameMarketTrack
	if len(cfg.BTC15M.Tickers) > 0 {
		track = &orchestrator.SameMarketTrack{
			Evaluator: arbitrage.New(arbitrage.Config{
				MinProfitCents:    cfg.MinProfitCents,
				MinPriceThreshold: cfg.MinPriceThreshold,
				TargetPairCost:    cfg.BTC15M.TargetPairCost,
				OrderSize:         cfg.BTC15M.OrderSize,
				Logger:            logger,
			}),
			Tickers:               cfg.BTC15M.Tickers,
			OrderSize:             int(cfg.BTC15M.OrderSize),
			ScanInterval:          cfg.BTC15M.ScanInterval,
			MarketRefresh:         cfg.BTC15M.MarketRefresh,
			MaxPositionsPerMarket: cfg.BTC15M.MaxPositionsPerMarket,
			MaxPositionsTotal:     cfg.BTC15M.MaxPositionsTotal,
			MinTimeRemaining:      cfg.BTC15M.MinTimeRemaining,
			Cooldown:              cfg.BTC15M.Cooldown,
		}
	}

	engineCfg := orchestrator.Config{
		VenueA:              polyClient,
		VenueB:              a.kalshi,
		Matcher:             matcher,
		Evaluator:           evaluator,
		Executor:            a.executor,
		Alerter:             a.alerter,
		Storage:             a.store,
		Quotes:              a.quotes,
		Subscriber:          a.wsPool,
		MarketRefresh:       cfg.MarketRefresh,
		ScanInterval:        cfg.ScanInterval,
		KalshiPoll:          cfg.KalshiPoll,
		ResolutionCheck:     cfg.ResolutionCheck,
		TradeCooldown:       cfg.TradeCooldown,
		MarketLimit:         cfg.MarketLimit,
		MinProfitCents:      cfg.MinProfitCents,
		AlertThresholdCents: cfg.AlertThresholdCents,
		TradeDollars:        cfg.TradeDollars(),
		BTC15M:              track,
		Logger:              logger,
	}
	if a.breaker != nil {
		engineCfg.Gate = a.breaker
	}

	return orchestrator.New(engineCfg)
}

// venueATrader joins the venue A read client and trader behind the
// executor's trading surface. CLOB books are per token, so the side
// argument is implied by the token and dropped.
type venueATrader struct {
	client *polymarket.Client
	trader *polymarket.Trader
}

func (v *venueATrader) PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	return v.trader.PlaceOrder(ctx, req)
}

func (v *venueATrader) FetchBook(ctx context.Context, tokenID string, _ types.Side) (*types.OrderBook, error) {
	return v.client.FetchBook(ctx, tokenID)
}

func (v *venueATrader) OrderStatus(ctx context.Context, orderID string) (*types.OrderConfirmation, error) {
	return v.trader.OrderStatus(ctx, orderID)
}
