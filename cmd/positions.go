package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mselser95/crossmarket-arb/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show the running bot's open positions",
	Long: `Queries the HTTP API of a running bot and prints its open positions.
The bot must be up (see "crossarb run"); use --addr if it listens
somewhere other than localhost:8080.`,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringP("addr", "a", "http://localhost:8080", "Base URL of the running bot")
}

func runPositions(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	positions, err := fetchPositions(ctx, addr)
	if err != nil {
		return err
	}

	if len(positions) == 0 {
		fmt.Println("no open positions")
		return nil
	}

	printPositionsTable(positions)

	return nil
}

func fetchPositions(ctx context.Context, baseURL string) ([]httpserver.PositionView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query bot at %s: %w", baseURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bot returned status %d", resp.StatusCode)
	}

	var positions []httpserver.PositionView
	err = json.NewDecoder(resp.Body).Decode(&positions)
	if err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	return positions, nil
}

func printPositionsTable(positions []httpserver.PositionView) {
	table := tablewriter.NewWriter(rootCmd.OutOrStdout())
	table.Header("Market", "Strategy", "Contracts", "Entry A", "Entry B", "Exp. net", "Held")

	now := time.Now().UTC()
	for _, p := range positions {
		table.Append(
			truncate(p.Market, 48),
			p.Strategy,
			fmt.Sprintf("%d", p.Contracts),
			fmt.Sprintf("%d¢", p.EntryPriceACents),
			fmt.Sprintf("%d¢", p.EntryPriceBCents),
			fmt.Sprintf("%d¢", p.ExpectedNetCents),
			now.Sub(p.EntryTime).Round(time.Second).String(),
		)
	}

	table.Render()
}
