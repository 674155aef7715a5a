package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one arbitrage scan and print the opportunities",
	Long: `Discovers and matches markets on both venues, evaluates every pair
for complementary-side arbitrage and prints the profitable ones sorted
by net edge. Nothing is executed.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntP("limit", "l", 200, "Maximum markets to fetch per venue")
	scanCmd.Flags().IntP("top", "t", 0, "Show at most this many opportunities (default TOP_N_OPPORTUNITIES)")
}

func runScan(cmd *cobra.Command, args []string) error {
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

	top, _ := cmd.Flags().GetInt("top")
	if !cmd.Flags().Changed("top") && cfg.TopNOpportunities > 0 {
		top = cfg.TopNOpportunities
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pairs, err := discoverPairs(ctx, cfg, logger, limit)
	if err != nil {
		return err
	}

	evaluator := arbitrage.New(arbitrage.Config{
		MinProfitCents:    cfg.MinProfitCents,
		MinPriceThreshold: cfg.MinPriceThreshold,
		FeeCents:          cfg.TotalFeeCents,
		Logger:            logger,
	})

	opps := evaluatePairs(evaluator, pairs)

	if len(opps) == 0 {
		fmt.Printf("no opportunities across %d pairs (min profit %d¢)\n",
			len(pairs), cfg.MinProfitCents)
		return nil
	}

	if top > 0 && len(opps) > top {
		opps = opps[:top]
	}

	printOpportunitiesTable(opps)
	fmt.Printf("\n%d opportunities across %d pairs\n", len(opps), len(pairs))

	return nil
}

// evaluatePairs prices every pair and returns the profitable ones, best
// net edge first.
func evaluatePairs(evaluator *arbitrage.Evaluator, pairs []types.MatchedPair) []*arbitrage.Opportunity {
	opps := make([]*arbitrage.Opportunity, 0, len(pairs))

	for _, pair := range pairs {
		opp := evaluator.EvaluateCrossVenue(pair)
		if opp != nil {
			opps = append(opps, opp)
		}
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].NetProfitCents > opps[j].NetProfitCents
	})

	return opps
}

func printOpportunitiesTable(opps []*arbitrage.Opportunity) {
	table := tablewriter.NewWriter(rootCmd.OutOrStdout())
	table.Header("#", "Market", "Strategy", "A", "B", "Gross", "Fees", "Net", "Cost")

	for i, o := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(o.Name, 48),
			string(o.Strategy),
			fmt.Sprintf("%s@%d¢", o.SideA, o.PriceACents),
			fmt.Sprintf("%s@%d¢", o.SideB, o.PriceBCents),
			fmt.Sprintf("%d¢", o.GrossSpreadCents),
			fmt.Sprintf("%d¢", o.FeesCents),
			fmt.Sprintf("%d¢", o.NetProfitCents),
			fmt.Sprintf("%d¢", o.TotalCostCents),
		)
	}

	table.Render()
}
