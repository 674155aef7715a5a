package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/crossmarket-arb/internal/app"
	"github.com/mselser95/crossmarket-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the cross-venue arbitrage bot, which will:
1. Discover active markets on both venues and pair equivalent ones
2. Subscribe to venue A orderbooks via WebSocket and poll venue B
3. Evaluate pairs for complementary-side arbitrage after fees
4. Execute dual-leg trades (dry-run unless DRY_RUN=false)

The HTTP surface on HTTP_PORT serves /health, /ready, /metrics and the
/api inspection endpoints while the bot runs.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
