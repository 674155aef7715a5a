package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing trades and keeping
// daily stats in memory. Default backend for local runs.
type ConsoleStorage struct {
	mu     sync.Mutex
	days   map[string]*DailyStats
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")

	return &ConsoleStorage{
		days:   make(map[string]*DailyStats),
		logger: logger,
	}
}

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// RecordTrade pretty-prints the trade and folds it into in-memory stats.
func (c *ConsoleStorage) RecordTrade(ctx context.Context, trade *TradeRecord) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("💰 TRADE RECORDED (%s)\n", trade.Type)
	fmt.Println(consoleRule)
	fmt.Printf("Market:    %s\n", trade.Name)
	fmt.Printf("Strategy:  %s\n", trade.Strategy)
	fmt.Printf("Legs:      A %s @ %d¢ / B %s @ %d¢\n",
		trade.SideA, trade.PriceACents, trade.SideB, trade.PriceBCents)
	fmt.Printf("Contracts: %d\n", trade.Contracts)
	fmt.Printf("Cost:      $%s (fees $%s)\n", trade.TotalCost.StringFixed(2), trade.Fees.StringFixed(2))
	fmt.Printf("Spread:    %d¢ gross\n", trade.GrossSpreadCents)
	fmt.Printf("Expected:  $%s net\n", trade.ExpectedNet.StringFixed(2))
	if !trade.ActualNet.IsZero() {
		fmt.Printf("Actual:    $%s net\n", trade.ActualNet.StringFixed(2))
	}
	fmt.Println(consoleRule)

	c.fold(trade)

	return nil
}

func (c *ConsoleStorage) fold(trade *TradeRecord) {
	day := Day(trade.CreatedAt)
	net := realizedNet(trade)

	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.days[day]
	if !ok {
		stats = &DailyStats{Day: day}
		c.days[day] = stats
	}

	stats.Trades++
	if net.IsPositive() {
		stats.Wins++
	} else if net.IsNegative() {
		stats.Losses++
	}
	stats.GrossPnl = stats.GrossPnl.Add(decimal.New(int64(trade.GrossSpreadCents*trade.Contracts), -2))
	stats.FeesPaid = stats.FeesPaid.Add(trade.Fees)
	stats.NetPnl = stats.NetPnl.Add(net)
}

// RecordNearMiss logs the skipped opportunity.
func (c *ConsoleStorage) RecordNearMiss(ctx context.Context, miss *NearMissRecord) error {
	c.logger.Info("near-miss",
		zap.String("name", miss.Name),
		zap.String("strategy", miss.Strategy),
		zap.Int("net-profit-cents", miss.NetProfitCents),
		zap.String("reason", miss.Reason))

	return nil
}

// DailyStats returns the in-memory aggregate for one UTC day.
func (c *ConsoleStorage) DailyStats(ctx context.Context, day string) (*DailyStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stats, ok := c.days[day]; ok {
		copied := *stats
		return &copied, nil
	}

	return &DailyStats{Day: day}, nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
