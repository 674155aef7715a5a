package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage on PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	DatabaseURL string
	Logger      *zap.Logger
}

const postgresSchema = `
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
	total_cost NUMERIC NOT NULL DEFAULT 0,
	gross_spread_cents INTEGER NOT NULL DEFAULT 0,
	fees NUMERIC NOT NULL DEFAULT 0,
	expected_net NUMERIC NOT NULL DEFAULT 0,
	actual_net NUMERIC NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ,
	entry_time TIMESTAMPTZ,
	exit_time TIMESTAMPTZ,
	hold_ms BIGINT NOT NULL DEFAULT 0,
	payout NUMERIC NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS near_misses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	strategy TEXT NOT NULL,
	net_profit_cents INTEGER NOT NULL DEFAULT 0,
	total_cost NUMERIC NOT NULL DEFAULT 0,
	reason TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_stats (
	day TEXT PRIMARY KEY,
	trades INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	gross_pnl NUMERIC NOT NULL DEFAULT 0,
	fees_paid NUMERIC NOT NULL DEFAULT 0,
	net_pnl NUMERIC NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// NewPostgresStorage connects via DATABASE_URL and ensures the schema.
func NewPostgresStorage(cfg PostgresConfig) (*PostgresStorage, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("postgres storage requires DATABASE_URL")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected")

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// RecordTrade inserts the trade and upserts that day's stats.
func (p *PostgresStorage) RecordTrade(ctx context.Context, trade *TradeRecord) error {
	const insert = `
		INSERT INTO trades (
			id, name, type, strategy, side_a, side_b,
			price_a_cents, price_b_cents, contracts, total_cost,
			gross_spread_cents, fees, expected_net, actual_net,
			expires_at, entry_time, exit_time, hold_ms, payout, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`

	_, err := p.db.ExecContext(ctx, insert,
		trade.ID,
		trade.Name,
		trade.Type,
		trade.Strategy,
		trade.SideA,
		trade.SideB,
		trade.PriceACents,
		trade.PriceBCents,
		trade.Contracts,
		trade.TotalCost,
		trade.GrossSpreadCents,
		trade.Fees,
		trade.ExpectedNet,
		trade.ActualNet,
		trade.ExpiresAt,
		trade.EntryTime,
		trade.ExitTime,
		trade.HoldMs,
		trade.Payout,
		trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	if err := p.updateDailyStats(ctx, trade); err != nil {
		return err
	}

	p.logger.Debug("trade-stored",
		zap.String("trade-id", trade.ID),
		zap.String("name", trade.Name),
		zap.String("type", trade.Type))

	return nil
}

func (p *PostgresStorage) updateDailyStats(ctx context.Context, trade *TradeRecord) error {
	net := realizedNet(trade)
	win, loss := 0, 0
	if net.IsPositive() {
		win = 1
	} else if net.IsNegative() {
		loss = 1
	}

	gross := decimal.New(int64(trade.GrossSpreadCents*trade.Contracts), -2)

	const upsert = `
		INSERT INTO daily_stats (day, trades, wins, losses, gross_pnl, fees_paid, net_pnl, updated_at)
		VALUES ($1, 1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (day) DO UPDATE SET
			trades = daily_stats.trades + 1,
			wins = daily_stats.wins + EXCLUDED.wins,
			losses = daily_stats.losses + EXCLUDED.losses,
			gross_pnl = daily_stats.gross_pnl + EXCLUDED.gross_pnl,
			fees_paid = daily_stats.fees_paid + EXCLUDED.fees_paid,
			net_pnl = daily_stats.net_pnl + EXCLUDED.net_pnl,
			updated_at = NOW()
	`

	_, err := p.db.ExecContext(ctx, upsert,
		Day(trade.CreatedAt), win, loss, gross, trade.Fees, net)
	if err != nil {
		return fmt.Errorf("update daily stats: %w", err)
	}

	return nil
}

// RecordNearMiss inserts one skipped opportunity.
func (p *PostgresStorage) RecordNearMiss(ctx context.Context, miss *NearMissRecord) error {
	const insert = `
		INSERT INTO near_misses (id, name, strategy, net_profit_cents, total_cost, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(ctx, insert,
		miss.ID,
		miss.Name,
		miss.Strategy,
		miss.NetProfitCents,
		miss.TotalCost,
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
func (p *PostgresStorage) DailyStats(ctx context.Context, day string) (*DailyStats, error) {
	const query = `
		SELECT day, trades, wins, losses, gross_pnl, fees_paid, net_pnl, updated_at
		FROM daily_stats WHERE day = $1
	`

	stats := &DailyStats{Day: day}
	err := p.db.QueryRowContext(ctx, query, day).Scan(
		&stats.Day,
		&stats.Trades,
		&stats.Wins,
		&stats.Losses,
		&stats.GrossPnl,
		&stats.FeesPaid,
		&stats.NetPnl,
		&stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
