package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testTrade() *TradeRecord {
	entry := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

	return &TradeRecord{
		ID:               "trade-1",
		Name:             "Will it rain tomorrow?",
		Type:             TradeEntry,
		Strategy:         "yes_a_no_b",
		SideA:            "YES",
		SideB:            "NO",
		PriceACents:      45,
		PriceBCents:      50,
		Contracts:        20,
		TotalCost:        decimal.RequireFromString("19.40"),
		GrossSpreadCents: 5,
		Fees:             decimal.RequireFromString("0.40"),
		ExpectedNet:      decimal.RequireFromString("0.60"),
		EntryTime:        entry,
		CreatedAt:        entry,
	}
}

func TestConsoleStorage_RecordTradePrintsAndAggregates(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	trade := testTrade()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := s.RecordTrade(context.Background(), trade)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)

	if err != nil {
		t.Fatalf("RecordTrade error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(trade.Name)) {
		t.Error("output missing market name")
	}
	if !bytes.Contains(buf.Bytes(), []byte("TRADE RECORDED")) {
		t.Error("output missing trade banner")
	}

	stats, err := s.DailyStats(context.Background(), "2026-08-25")
	if err != nil {
		t.Fatalf("DailyStats error: %v", err)
	}
	if stats.Trades != 1 || stats.Wins != 1 || stats.Losses != 0 {
		t.Errorf("stats = %+v, want 1 trade, 1 win", stats)
	}
	if !stats.NetPnl.Equal(decimal.RequireFromString("0.60")) {
		t.Errorf("NetPnl = %s, want 0.60", stats.NetPnl)
	}
	if !stats.GrossPnl.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("GrossPnl = %s, want 1.00 (5c x 20)", stats.GrossPnl)
	}
}

func TestConsoleStorage_ActualNetWinsOverExpected(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())

	trade := testTrade()
	trade.ActualNet = decimal.RequireFromString("-0.25")

	oldStdout := os.Stdout
	_, w, _ := os.Pipe()
	os.Stdout = w
	s.RecordTrade(context.Background(), trade)
	w.Close()
	os.Stdout = oldStdout

	stats, _ := s.DailyStats(context.Background(), "2026-08-25")
	if stats.Losses != 1 || stats.Wins != 0 {
		t.Errorf("stats = %+v, want loss counted from actual net", stats)
	}
}

func TestConsoleStorage_EmptyDay(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())

	stats, err := s.DailyStats(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("DailyStats error: %v", err)
	}
	if stats.Trades != 0 || !stats.NetPnl.IsZero() {
		t.Errorf("stats = %+v, want zeroes", stats)
	}
}

func TestPostgresStorage_RecordTrade(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}
	trade := testTrade()

	mock.ExpectExec("INSERT INTO trades").
		WithArgs(
			trade.ID, trade.Name, trade.Type, trade.Strategy,
			trade.SideA, trade.SideB,
			trade.PriceACents, trade.PriceBCents, trade.Contracts,
			sqlmock.AnyArg(), // total_cost
			trade.GrossSpreadCents,
			sqlmock.AnyArg(), // fees
			sqlmock.AnyArg(), // expected_net
			sqlmock.AnyArg(), // actual_net
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), // timestamps
			trade.HoldMs,
			sqlmock.AnyArg(), // payout
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("INSERT INTO daily_stats").
		WithArgs("2026-08-25", 1, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.RecordTrade(context.Background(), trade); err != nil {
		t.Errorf("RecordTrade error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_RecordTradeInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectExec("INSERT INTO trades").WillReturnError(sqlmock.ErrCancelled)

	if err := s.RecordTrade(context.Background(), testTrade()); err == nil {
		t.Error("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_RecordNearMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	miss := &NearMissRecord{
		ID:             "miss-1",
		Name:           "Will it rain tomorrow?",
		Strategy:       "no_a_yes_b",
		NetProfitCents: 3,
		TotalCost:      decimal.RequireFromString("0.97"),
		Reason:         "below minimum order",
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO near_misses").
		WithArgs(miss.ID, miss.Name, miss.Strategy, miss.NetProfitCents,
			sqlmock.AnyArg(), miss.Reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.RecordNearMiss(context.Background(), miss); err != nil {
		t.Errorf("RecordNearMiss error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_DailyStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	rows := sqlmock.NewRows([]string{"day", "trades", "wins", "losses", "gross_pnl", "fees_paid", "net_pnl", "updated_at"}).
		AddRow("2026-08-25", 4, 3, 1, "2.00", "0.80", "1.20", time.Now().UTC())
	mock.ExpectQuery("SELECT (.+) FROM daily_stats").WithArgs("2026-08-25").WillReturnRows(rows)

	stats, err := s.DailyStats(context.Background(), "2026-08-25")
	if err != nil {
		t.Fatalf("DailyStats error: %v", err)
	}
	if stats.Trades != 4 || stats.Wins != 3 || stats.Losses != 1 {
		t.Errorf("stats = %+v, want 4/3/1", stats)
	}
	if !stats.NetPnl.Equal(decimal.RequireFromString("1.20")) {
		t.Errorf("NetPnl = %s, want 1.20", stats.NetPnl)
	}
}

func TestPostgresStorage_DailyStatsEmptyDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	rows := sqlmock.NewRows([]string{"day", "trades", "wins", "losses", "gross_pnl", "fees_paid", "net_pnl", "updated_at"})
	mock.ExpectQuery("SELECT (.+) FROM daily_stats").WithArgs("2026-01-01").WillReturnRows(rows)

	stats, err := s.DailyStats(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("DailyStats error: %v", err)
	}
	if stats.Trades != 0 {
		t.Errorf("Trades = %d, want 0 for empty day", stats.Trades)
	}
}

func TestSQLiteStorage_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLiteStorage(SQLiteConfig{Path: path, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	trade := testTrade()
	if err := s.RecordTrade(ctx, trade); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	second := testTrade()
	second.ID = "trade-2"
	second.ActualNet = decimal.RequireFromString("-0.10")
	if err := s.RecordTrade(ctx, second); err != nil {
		t.Fatalf("RecordTrade second: %v", err)
	}

	if err := s.RecordNearMiss(ctx, &NearMissRecord{
		ID:        "miss-1",
		Name:      trade.Name,
		Strategy:  "yes_a_no_b",
		Reason:    "liquidity",
		CreatedAt: trade.CreatedAt,
	}); err != nil {
		t.Fatalf("RecordNearMiss: %v", err)
	}

	stats, err := s.DailyStats(ctx, "2026-08-25")
	if err != nil {
		t.Fatalf("DailyStats: %v", err)
	}
	if stats.Trades != 2 || stats.Wins != 1 || stats.Losses != 1 {
		t.Errorf("stats = %+v, want 2 trades, 1 win, 1 loss", stats)
	}
	if !stats.NetPnl.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("NetPnl = %s, want 0.50", stats.NetPnl)
	}
}

func TestSQLiteStorage_DuplicateTradeID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLiteStorage(SQLiteConfig{Path: path, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.RecordTrade(ctx, testTrade()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.RecordTrade(ctx, testTrade()); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestNew_ModeSelection(t *testing.T) {
	s, err := New(Config{Mode: ModeConsole, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("console mode: %v", err)
	}
	if _, ok := s.(*ConsoleStorage); !ok {
		t.Errorf("mode console built %T", s)
	}

	if _, err := New(Config{Mode: "redis"}); err == nil {
		t.Error("expected error for unknown mode")
	}

	if _, err := New(Config{Mode: ModePostgres}); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestStorage_Interface(t *testing.T) {
	var _ Storage = NewConsoleStorage(zap.NewNop())
	var _ Storage = (*PostgresStorage)(nil)
	var _ Storage = (*SQLiteStorage)(nil)
}
