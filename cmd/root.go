package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crossarb",
	Short: "Cross-venue prediction market arbitrage bot",
	Long: `Cross-venue prediction market arbitrage bot.

It pairs equivalent binary markets across two venues (a CLOB-style
exchange and a centralized exchange), watches their quotes, and
executes dual-leg trades when buying complementary sides on opposite
venues locks in a profit after fees.

Run "crossarb run" to start the bot; the other subcommands are one-shot
tools for inspecting pairs, opportunities, balances and positions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional: a missing .env just means the environment is already set.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
