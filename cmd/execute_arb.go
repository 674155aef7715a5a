package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/venue/kalshi"
	"github.com/mselser95/crossmarket-arb/internal/venue/polymarket"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeArbCmd = &cobra.Command{
	Use:   "execute-arb",
	Short: "Manually execute one dual-leg arbitrage",
	Long: `Places both legs of a cross-venue arbitrage by hand: buys the given
side on venue A and the opposite side on venue B through the same
execution pipeline the bot uses (liquidity probe, downsizing, paired
placement).

Dry-run by default; pass --live to place real orders. Example:

  crossarb execute-arb --market-a 0xabc... --token-a 123... \
    --ticker-b BTC-100K --side-a yes --price-a 45 --price-b 50 \
    --contracts 10`,
	RunE: runExecuteArb,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeArbCmd)
	executeArbCmd.Flags().String("market-a", "", "Venue A market (condition ID)")
	executeArbCmd.Flags().String("token-a", "", "Venue A token ID for the bought side")
	executeArbCmd.Flags().String("ticker-b", "", "Venue B market ticker")
	executeArbCmd.Flags().String("side-a", "yes", "Side bought on venue A (yes or no)")
	executeArbCmd.Flags().Int("price-a", 0, "Venue A limit price in cents")
	executeArbCmd.Flags().Int("price-b", 0, "Venue B limit price in cents")
	executeArbCmd.Flags().IntP("contracts", "c", 0, "Contracts per leg")
	executeArbCmd.Flags().Bool("live", false, "Place real orders instead of a dry run")

	for _, required := range []string{"market-a", "token-a", "ticker-b", "price-a", "price-b", "contracts"} {
		_ = executeArbCmd.MarkFlagRequired(required)
	}
}

func runExecuteArb(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	marketA, _ := cmd.Flags().GetString("market-a")
	tokenA, _ := cmd.Flags().GetString("token-a")
	tickerB, _ := cmd.Flags().GetString("ticker-b")
	sideAFlag, _ := cmd.Flags().GetString("side-a")
	priceA, _ := cmd.Flags().GetInt("price-a")
	priceB, _ := cmd.Flags().GetInt("price-b")
	contracts, _ := cmd.Flags().GetInt("contracts")
	live, _ := cmd.Flags().GetBool("live")

	sideA, err := parseSide(sideAFlag)
	if err != nil {
		return err
	}

	if priceA < 1 || priceA > 99 || priceB < 1 || priceB > 99 {
		return fmt.Errorf("prices must be between 1 and 99 cents, got %d and %d", priceA, priceB)
	}

	opp, legA, legB := buildManualArb(manualArb{
		MarketA:   marketA,
		TokenA:    tokenA,
		TickerB:   tickerB,
		SideA:     sideA,
		PriceA:    priceA,
		PriceB:    priceB,
		Contracts: contracts,
		FeeCents:  cfg.TotalFeeCents,
	})

	fmt.Printf("%s\n", opp)
	if opp.NetProfitCents <= 0 {
		fmt.Printf("warning: net edge is %d¢ per contract\n", opp.NetProfitCents)
	}

	traderA, err := polymarket.NewTrader(polymarket.TraderConfig{
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
		return fmt.Errorf("create venue A trader: %w", err)
	}

	traderB, err := kalshi.NewClient(kalshi.Config{
		BaseURL:        cfg.KalshiAPIURL,
		APIKeyID:       cfg.KalshiAPIKeyID,
		PrivateKeyPEM:  cfg.KalshiPrivateKeyPEM,
		PrivateKeyPath: cfg.KalshiPrivateKeyPath,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create venue B client: %w", err)
	}

	client := polymarket.NewClient(polymarket.ClientConfig{
		GammaURL: cfg.GammaAPIURL,
		ClobURL:  cfg.ClobAPIURL,
		Logger:   logger,
	})

	executor := execution.New(execution.Config{
		DryRun:                !live,
		MinOrderDollars:       cfg.MinOrderDollars,
		LiquiditySafetyMargin: cfg.LiquiditySafetyMargin,
		OrderTimeout:          cfg.OrderTimeout,
		ProbeTimeout:          cfg.ProbeTimeout,
		TraderA:               &manualVenueA{client: client, trader: traderA},
		TraderB:               traderB,
		Logger:                logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result := executor.Execute(ctx, opp, legA, legB, contracts)

	printExecutionResult(result)

	if !result.Success {
		return fmt.Errorf("execution failed: %s", result.Reason)
	}

	return nil
}

// manualArb is the flag surface of execute-arb, gathered for leg building.
type manualArb struct {
	MarketA   string
	TokenA    string
	TickerB   string
	SideA     types.Side
	PriceA    int
	PriceB    int
	Contracts int
	FeeCents  int
}

// buildManualArb prices a hand-specified dislocation the way the
// evaluator prices a matched pair: venue B always takes the side
// opposite to venue A.
func buildManualArb(m manualArb) (*arbitrage.Opportunity, execution.Leg, execution.Leg) {
	strategy := arbitrage.StrategyYesANoB
	if m.SideA == types.SideNo {
		strategy = arbitrage.StrategyNoAYesB
	}

	gross := 100 - m.PriceA - m.PriceB

	opp := &arbitrage.Opportunity{
		ID:               uuid.New().String(),
		Name:             m.MarketA + " / " + m.TickerB,
		Strategy:         strategy,
		SideA:            m.SideA,
		SideB:            m.SideA.Opposite(),
		PriceACents:      m.PriceA,
		PriceBCents:      m.PriceB,
		GrossSpreadCents: gross,
		FeesCents:        m.FeeCents,
		NetProfitCents:   gross - m.FeeCents,
		TotalCostCents:   m.PriceA + m.PriceB + m.FeeCents,
		Contracts:        m.Contracts,
		DetectedAt:       time.Now().UTC(),
	}

	legA := execution.Leg{
		Venue:      types.VenueA,
		MarketID:   m.MarketA,
		TokenID:    m.TokenA,
		Side:       m.SideA,
		PriceCents: m.PriceA,
	}

	legB := execution.Leg{
		Venue:      types.VenueB,
		MarketID:   m.TickerB,
		TokenID:    m.TickerB,
		Side:       m.SideA.Opposite(),
		PriceCents: m.PriceB,
	}

	return opp, legA, legB
}

func parseSide(s string) (types.Side, error) {
	switch s {
	case "yes", "YES", "Yes":
		return types.SideYes, nil
	case "no", "NO", "No":
		return types.SideNo, nil
	default:
		return "", fmt.Errorf("invalid side %q: want yes or no", s)
	}
}

func printExecutionResult(r *execution.Result) {
	status := "FAILED"
	switch {
	case r.Success && r.DryRun:
		status = "DRY RUN OK"
	case r.Success:
		status = "EXECUTED"
	}

	fmt.Printf("\n%s: %d contracts in %dms\n", status, r.Contracts, r.ElapsedMs)

	if r.Reason != "" {
		fmt.Printf("reason: %s\n", r.Reason)
	}
	if r.ConfirmationA != nil {
		fmt.Printf("venue A order: %s (%s)\n", r.ConfirmationA.OrderID, r.ConfirmationA.Status)
	}
	if r.ConfirmationB != nil {
		fmt.Printf("venue B order: %s (%s)\n", r.ConfirmationB.OrderID, r.ConfirmationB.Status)
	}
	if r.ErrA != nil {
		fmt.Printf("venue A error: %v\n", r.ErrA)
	}
	if r.ErrB != nil {
		fmt.Printf("venue B error: %v\n", r.ErrB)
	}
}

// manualVenueA joins the venue A read client and trader for the executor,
// mirroring the wiring the bot uses.
type manualVenueA struct {
	client *polymarket.Client
	trader *polymarket.Trader
}

func (v *manualVenueA) PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	return v.trader.PlaceOrder(ctx, req)
}

func (v *manualVenueA) FetchBook(ctx context.Context, tokenID string, _ types.Side) (*types.OrderBook, error) {
	return v.client.FetchBook(ctx, tokenID)
}

func (v *manualVenueA) OrderStatus(ctx context.Context, orderID string) (*types.OrderConfirmation, error) {
	return v.trader.OrderStatus(ctx, orderID)
}
