package cmd

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/venue/kalshi"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check trading balances on both venues",
	Long: `Displays the funds available for trading:
- Venue A: on-chain collateral (gas token, USDC balance and exchange
  allowance) read from the wallet behind PRIVATE_KEY, plus any open
  outcome-token positions
- Venue B: cash balance from the exchange API, when credentials are set

With --watch the venue A wallet is polled continuously and exported as
Prometheus metrics instead of printed once.`,
	RunE: runBalanceCheck,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringP("rpc", "r", "https://polygon-rpc.com", "Chain RPC endpoint for venue A collateral")
	balanceCmd.Flags().BoolP("watch", "w", false, "Poll continuously and export wallet metrics")
	balanceCmd.Flags().DurationP("interval", "i", 30*time.Second, "Poll interval in watch mode")
	balanceCmd.Flags().BoolP("positions", "p", true, "Show open venue A positions")
}

func runBalanceCheck(cmd *cobra.Command, args []string) error {
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

	rpcURL, _ := cmd.Flags().GetString("rpc")
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	showPositions, _ := cmd.Flags().GetBool("positions")

	address, err := walletAddress(cfg.PrivateKey)
	if err != nil {
		return err
	}

	if watch {
		return watchWallet(rpcURL, address, interval, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	err = printVenueABalances(ctx, rpcURL, address, showPositions, logger)
	if err != nil {
		return err
	}

	return printVenueBBalance(ctx, cfg, logger)
}

// walletAddress derives the venue A wallet address from the configured
// signing key.
func walletAddress(privateKeyHex string) (common.Address, error) {
	if privateKeyHex == "" {
		return common.Address{}, errors.New("PRIVATE_KEY not set")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, errors.New("unexpected public key type")
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

func printVenueABalances(ctx context.Context, rpcURL string, address common.Address, showPositions bool, logger *zap.Logger) error {
	client, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	balances, err := client.GetBalances(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch venue A balances: %w", err)
	}

	fmt.Print(formatVenueABalances(address, balances))

	if !showPositions {
		return nil
	}

	positions, err := client.GetPositions(ctx, address.Hex())
	if err != nil {
		fmt.Printf("positions unavailable: %v\n", err)
		return nil
	}

	if len(positions) == 0 {
		fmt.Printf("No open positions\n")
		return nil
	}

	total := 0.0
	for _, pos := range positions {
		fmt.Printf("  %s [%s] %.2f tokens, $%.2f (PnL $%.2f)\n",
			pos.MarketSlug, pos.Outcome, pos.Size, pos.Value, pos.CashPnL)
		total += pos.Value
	}
	fmt.Printf("Total position value: $%.2f\n", total)

	return nil
}

func printVenueBBalance(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := kalshi.NewClient(kalshi.Config{
		BaseURL:        cfg.KalshiAPIURL,
		APIKeyID:       cfg.KalshiAPIKeyID,
		PrivateKeyPEM:  cfg.KalshiPrivateKeyPEM,
		PrivateKeyPath: cfg.KalshiPrivateKeyPath,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create venue B client: %w", err)
	}

	fmt.Printf("\n=== Venue B ===\n")

	if !client.CanTrade() {
		fmt.Printf("Credentials not configured; balance unavailable\n")
		return nil
	}

	balance, err := client.Balance(ctx)
	if err != nil {
		return fmt.Errorf("fetch venue B balance: %w", err)
	}

	fmt.Printf("Cash balance: $%.2f\n", balance)

	return nil
}

// watchWallet runs the wallet tracker until interrupted, publishing the
// balances as Prometheus metrics.
func watchWallet(rpcURL string, address common.Address, interval time.Duration, logger *zap.Logger) error {
	tracker, err := wallet.New(&wallet.Config{
		RPCEndpoint:  rpcURL,
		Address:      address,
		PollInterval: interval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create wallet tracker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tracker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("wallet tracker: %w", err)
	}

	return nil
}

// formatVenueABalances renders the on-chain side of the balance sheet.
func formatVenueABalances(address common.Address, balances *wallet.Balances) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Venue A (wallet %s) ===\n", address.Hex())
	fmt.Fprintf(&b, "Gas token: %s\n", formatUnits(balances.Gas, 1e18, 6))
	fmt.Fprintf(&b, "USDC:      %s\n", formatUnits(balances.Collateral, 1e6, 2))

	if balances.CollateralAllowance.Cmp(new(big.Int).SetUint64(1e18)) > 0 {
		fmt.Fprintf(&b, "Allowance: unlimited\n")
	} else {
		fmt.Fprintf(&b, "Allowance: %s\n", formatUnits(balances.CollateralAllowance, 1e6, 2))
	}

	return b.String()
}

func formatUnits(v *big.Int, scale float64, decimals int) string {
	f := new(big.Float).Quo(new(big.Float).SetInt(v), big.NewFloat(scale))
	return f.Text('f', decimals)
}
