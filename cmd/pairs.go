package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/matching"
	"github.com/mselser95/crossmarket-arb/internal/venue/kalshi"
	"github.com/mselser95/crossmarket-arb/internal/venue/polymarket"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Discover and match markets across both venues",
	Long: `Fetches active markets from both venues, runs the title matcher and
prints the resulting pairs. One-shot version of what the bot does on
every market refresh; useful for tuning MATCHING_THRESHOLD.`,
	RunE: runPairs,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(pairsCmd)
	pairsCmd.Flags().IntP("limit", "l", 200, "Maximum markets to fetch per venue")
}

func runPairs(cmd *cobra.Command, args []string) error {
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

	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pairs, err := discoverPairs(ctx, cfg, logger, limit)
	if err != nil {
		return err
	}

	if len(pairs) == 0 {
		fmt.Println("no pairs matched")
		return nil
	}

	printPairsTable(pairs)
	fmt.Printf("\n%d pairs matched (threshold %.2f)\n", len(pairs), cfg.MatchingThreshold)

	return nil
}

// discoverPairs fetches both catalogs and runs the matcher, the same way
// the orchestrator does on a market refresh.
func discoverPairs(ctx context.Context, cfg *config.Config, logger *zap.Logger, limit int) ([]types.MatchedPair, error) {
	venueA := polymarket.NewClient(polymarket.ClientConfig{
		GammaURL: cfg.GammaAPIURL,
		ClobURL:  cfg.ClobAPIURL,
		Logger:   logger,
	})

	venueB, err := kalshi.NewClient(kalshi.Config{
		BaseURL:        cfg.KalshiAPIURL,
		APIKeyID:       cfg.KalshiAPIKeyID,
		PrivateKeyPEM:  cfg.KalshiPrivateKeyPEM,
		PrivateKeyPath: cfg.KalshiPrivateKeyPath,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create venue B client: %w", err)
	}

	aOutcomes, err := venueA.ActiveOutcomes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch venue A markets: %w", err)
	}

	bOutcomes, err := venueB.FetchOpenMarkets(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch venue B markets: %w", err)
	}

	matcher := matching.New(matching.Config{
		Threshold: cfg.MatchingThreshold,
		Logger:    logger,
	})

	return matcher.Match(aOutcomes, bOutcomes), nil
}

func printPairsTable(pairs []types.MatchedPair) {
	table := tablewriter.NewWriter(rootCmd.OutOrStdout())
	table.Header("#", "Venue A market", "Venue B ticker", "Sim", "A yes/no", "B yes/no", "Closes")

	for i, p := range pairs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(p.A.Title, 48),
			p.B.MarketID,
			fmt.Sprintf("%.2f", p.Similarity),
			fmt.Sprintf("%d¢/%d¢", p.A.YesPriceCents, p.A.NoPriceCents),
			fmt.Sprintf("%d¢/%d¢", p.B.YesPriceCents, p.B.NoPriceCents),
			p.A.CloseTime.UTC().Format("Jan 02 15:04"),
		)
	}

	table.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max-1] + "…"
}
