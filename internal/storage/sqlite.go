package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage on a local SQLite file. Suited to
// single-process deployments where running Postgres is overkill.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// SQLiteConfig holds SQLite configuration.
type SQLiteConfig struct {
	Path   string
	Logger *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	strategy TEXT NOT NULL,
	side_a TEXT NOT NULL DEFAULT '',
	side_b TEXT NOT NULL DEFAULT '',
	price_a_cents INTEGER NOT NULL DEFAULT 0,
	price_b_cents INTEGER NOT NULL DEFAULT 0,
	contracts INTEGER NOT NULL DEFAULT 0,
	total_cost TEXT NOT NULL DEFAULT '0',
	gross_spread_cents INTEGER NOT NULL DEFAULT 0,
	fees TEXT NOT NULL DEFAULT '0',
	expected_net TEXT NOT NULL DEFAULT '0',
	actual_net TEXT NOT NULL DEFAULT '0',
	expires_at TIMESTAMP,
	entry_time TIMESTAMP,
	exit_time TIMESTAMP,
	hold_ms INTEGER NOT NULL DEFAULT 0,
	payout TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS near_misses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	strategy TEXT NOT NULL,
	net_profit_cents INTEGER NOT NULL DEFAULT 0,
	total_cost TEXT NOT NULL DEFAULT '0',
	reason TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_stats (
	day TEXT PRIMARY KEY,
	trades INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	gross_pnl TEXT NOT NULL DEFAULT '0',
	fees_paid TEXT NOT NULL DEFAULT '0',
	net_pnl TEXT NOT NULL DEFAULT '0',
	updated_at TIMESTAMP NOT NULL
);
`

// NewSQLiteStorage opens (or creates) the database file and ensures the
// schema.
func NewSQLiteStorage(cfg SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite storage requires a path")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer keeps SQLite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("sqlite-storage-opened", zap.String("path", cfg.Path))

	return &SQLiteStorage{db: db, logger: cfg.Logger}, nil
}

// RecordTrade inserts the trade and upserts that day's stats.
func (s *SQLiteStorage) RecordTrade(ctx context.Context, trade *TradeRecord) error {
	const insert = `
		INSERT INTO trades (
			id, name, type, strategy, side_a, side_b,
			price_a_cents, price_b_cents, contracts, total_cost,
			gross_spread_cents, fees, expected_net, actual_net,
			expires_at, entry_time, exit_time, hold_ms, payout, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, insert,
		trade.ID,
		trade.Name,
		trade.Type,
		trade.Strategy,
		trade.SideA,
		trade.SideB,
		trade.PriceACents,
		trade.PriceBCents,
		trade.Contracts,
		trade.TotalCost.String(),
		trade.GrossSpreadCents,
		trade.Fees.String(),
		trade.ExpectedNet.String(),
		trade.ActualNet.String(),
		trade.ExpiresAt,
		trade.EntryTime,
		trade.ExitTime,
		trade.HoldMs,
		trade.Payout.String(),
		trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	return s.updateDailyStats(ctx, trade)
}

func (s *SQLiteStorage) updateDailyStats(ctx context.Context, trade *TradeRecord) error {
	day := Day(trade.CreatedAt)
	net := realizedNet(trade)
	win, loss := 0, 0
	if net.IsPositive() {
		win = 1
	} else if net.IsNegative() {
		loss = 1
	}

	gross := decimal.New(int64(trade.GrossSpreadCents*trade.Contracts), -2)

	// SQLite has no NUMERIC arithmetic worth trusting on text columns, so
	// read-modify-write under the single connection.
	current, err := s.DailyStats(ctx, day)
	if err != nil {
		return err
	}

	const upsert = `
		INSERT INTO daily_stats (day, trades, wins, losses, gross_pnl, fees_paid, net_pnl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(day) DO UPDATE SET
			trades = excluded.trades,
			wins = excluded.wins,
			losses = excluded.losses,
			gross_pnl = excluded.gross_pnl,
			fees_paid = excluded.fees_paid,
			net_pnl = excluded.net_pnl,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, upsert,
		day,
		current.Trades+1,
		current.Wins+win,
		current.Losses+loss,
		current.GrossPnl.Add(gross).String(),
		current.FeesPaid.Add(trade.Fees).String(),
		current.NetPnl.Add(net).String(),
	)
	if err != nil {
		return fmt.Errorf("update daily stats: %w", err)
	}

	return nil
}

// RecordNearMiss inserts one skipped opportunity.
func (s *SQLiteStorage) RecordNearMiss(ctx context.Context, miss *NearMissRecord) error {
	const insert = `
		INSERT INTO near_misses (id, name, strategy, net_profit_cents, total_cost, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, insert,
		miss.ID,
		miss.Name,
		miss.Strategy,
		miss.NetProfitCents,
		miss.TotalCost.String(),
		miss.Reason,
		miss.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert near miss: %w", err)
	}

	return nil
}

// DailyStats reads the aggregate row for one UTC day. A day with no
// trades returns zeroed stats, not an error.
func (s *SQLiteStorage) DailyStats(ctx context.Context, day string) (*DailyStats, error) {
	const query = `
		SELECT trades, wins, losses, gross_pnl, fees_paid, net_pnl
		FROM daily_stats WHERE day = ?
	`

	stats := &DailyStats{Day: day}

	var gross, fees, net string
	err := s.db.QueryRowContext(ctx, query, day).Scan(
		&stats.Trades, &stats.Wins, &stats.Losses, &gross, &fees, &net)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}

	if stats.GrossPnl, err = decimal.NewFromString(gross); err != nil {
		return nil, fmt.Errorf("parse gross_pnl: %w", err)
	}
	if stats.FeesPaid, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("parse fees_paid: %w", err)
	}
	if stats.NetPnl, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("parse net_pnl: %w", err)
	}

	return stats, nil
}

// Close closes the database file.
func (s *SQLiteStorage) Close() error {
	s.logger.Info("closing-sqlite-storage")
	return s.db.Close()
}
