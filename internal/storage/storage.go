package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Trade record types.
const (
	TradeEntry  = "entry"
	TradeExit   = "exit"
	TradeRedeem = "redeem"
)

// TradeRecord is one executed (or simulated) dual-leg trade. Money fields
// are dollars as decimals; prices stay integer cents.
type TradeRecord struct {
	ID               string
	Name             string
	Type             string
	Strategy         string
	SideA            string
	SideB            string
	PriceACents      int
	PriceBCents      int
	Contracts        int
	TotalCost        decimal.Decimal
	GrossSpreadCents int
	Fees             decimal.Decimal
	ExpectedNet      decimal.Decimal
	ActualNet        decimal.Decimal
	ExpiresAt        time.Time
	EntryTime        time.Time
	ExitTime         time.Time
	HoldMs           int64
	Payout           decimal.Decimal
	CreatedAt        time.Time
}

// NearMissRecord is an opportunity that cleared detection but was skipped
// before placement.
type NearMissRecord struct {
	ID             string
	Name           string
	Strategy       string
	NetProfitCents int
	TotalCost      decimal.Decimal
	Reason         string
	CreatedAt      time.Time
}

// DailyStats aggregates one UTC day of trading.
type DailyStats struct {
	Day       string
	Trades    int
	Wins      int
	Losses    int
	GrossPnl  decimal.Decimal
	FeesPaid  decimal.Decimal
	NetPnl    decimal.Decimal
	UpdatedAt time.Time
}

// Storage persists the trade ledger. Callers treat writes as best-effort:
// a failed write is logged, never fatal.
type Storage interface {
	// RecordTrade stores one trade and folds it into that day's stats.
	RecordTrade(ctx context.Context, trade *TradeRecord) error

	// RecordNearMiss stores one skipped opportunity.
	RecordNearMiss(ctx context.Context, miss *NearMissRecord) error

	// DailyStats returns the aggregate for one UTC day (YYYY-MM-DD).
	DailyStats(ctx context.Context, day string) (*DailyStats, error)

	// Close releases the backend.
	Close() error
}

// Backend modes selected by STORAGE_MODE.
const (
	ModeConsole  = "console"
	ModePostgres = "postgres"
	ModeSQLite   = "sqlite"
)

// Config selects and parameterizes a storage backend.
type Config struct {
	Mode        string
	DatabaseURL string
	SQLitePath  string
	Logger      *zap.Logger
}

// New builds the backend named by cfg.Mode. Empty mode falls back to
// console.
func New(cfg Config) (Storage, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	switch cfg.Mode {
	case "", ModeConsole:
		return NewConsoleStorage(cfg.Logger), nil
	case ModePostgres:
		return NewPostgresStorage(PostgresConfig{
			DatabaseURL: cfg.DatabaseURL,
			Logger:      cfg.Logger,
		})
	case ModeSQLite:
		return NewSQLiteStorage(SQLiteConfig{
			Path:   cfg.SQLitePath,
			Logger: cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}

// Day formats a timestamp as its UTC day key.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// realizedNet picks the PnL a trade contributes to daily stats: the
// verified fill result when available, the model estimate otherwise.
func realizedNet(trade *TradeRecord) decimal.Decimal {
	if !trade.ActualNet.IsZero() {
		return trade.ActualNet
	}

	return trade.ExpectedNet
}
