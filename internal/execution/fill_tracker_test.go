package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// fillAfter scripts an order that reports full fill after n status reads.
type fillAfter struct {
	mu    sync.Mutex
	venue types.Venue
	after int
	calls int
	fill  int
}

func (f *fillAfter) PlaceOrder(_ context.Context, _ types.OrderRequest) (*types.OrderConfirmation, error) {
	return nil, types.ErrNotConfigured
}

func (f *fillAfter) FetchBook(_ context.Context, _ string, _ types.Side) (*types.OrderBook, error) {
	return nil, types.ErrNoOrderbook
}

func (f *fillAfter) OrderStatus(_ context.Context, orderID string) (*types.OrderConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	filled := 0
	if f.calls >= f.after {
		filled = f.fill
	}

	return &types.OrderConfirmation{Venue: f.venue, OrderID: orderID, Status: "matched", Filled: filled}, nil
}

func TestVerifyFills_FillsAfterRetries(t *testing.T) {
	traderA := &fillAfter{venue: types.VenueA, after: 1, fill: 10}
	traderB := &fillAfter{venue: types.VenueB, after: 3, fill: 10}

	ft := NewFillTracker(FillTrackerConfig{
		TraderA:        traderA,
		TraderB:        traderB,
		InitialBackoff: time.Millisecond,
		FillTimeout:    2 * time.Second,
		Logger:         zap.NewNop(),
	})

	confA := &types.OrderConfirmation{Venue: types.VenueA, OrderID: "a-1"}
	confB := &types.OrderConfirmation{Venue: types.VenueB, OrderID: "b-1"}

	statuses, err := ft.VerifyFills(context.Background(), confA, confB, 10)
	if err != nil {
		t.Fatalf("VerifyFills error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}

	for _, s := range statuses {
		if !s.FullyFilled {
			t.Errorf("leg %s not fully filled: %+v", s.Venue, s)
		}
		if s.Filled != 10 {
			t.Errorf("leg %s Filled = %d, want 10", s.Venue, s.Filled)
		}
	}

	if traderB.calls < 3 {
		t.Errorf("venue B status calls = %d, want at least 3", traderB.calls)
	}
}

func TestVerifyFills_TimeoutMarksUnfilledLeg(t *testing.T) {
	traderA := &fillAfter{venue: types.VenueA, after: 1, fill: 10}
	// Never fills.
	traderB := &fillAfter{venue: types.VenueB, after: 1, fill: 2}

	ft := NewFillTracker(FillTrackerConfig{
		TraderA:        traderA,
		TraderB:        traderB,
		InitialBackoff: time.Millisecond,
		FillTimeout:    50 * time.Millisecond,
		Logger:         zap.NewNop(),
	})

	confA := &types.OrderConfirmation{Venue: types.VenueA, OrderID: "a-1"}
	confB := &types.OrderConfirmation{Venue: types.VenueB, OrderID: "b-1"}

	statuses, err := ft.VerifyFills(context.Background(), confA, confB, 10)
	if err != nil {
		t.Fatalf("VerifyFills error: %v", err)
	}

	var legA, legB *FillStatus
	for i := range statuses {
		switch statuses[i].Venue {
		case types.VenueA:
			legA = &statuses[i]
		case types.VenueB:
			legB = &statuses[i]
		}
	}

	if legA == nil || !legA.FullyFilled || legA.Err != nil {
		t.Errorf("leg A = %+v, want fully filled without error", legA)
	}
	if legB == nil || legB.FullyFilled || legB.Err == nil {
		t.Errorf("leg B = %+v, want timeout error on partial fill", legB)
	}
	if legB != nil && legB.Filled != 2 {
		t.Errorf("leg B Filled = %d, want 2", legB.Filled)
	}
}

func TestVerifyFills_ContextCancel(t *testing.T) {
	traderA := &fillAfter{venue: types.VenueA, after: 100, fill: 10}

	ft := NewFillTracker(FillTrackerConfig{
		TraderA:        traderA,
		TraderB:        traderA,
		InitialBackoff: 10 * time.Millisecond,
		FillTimeout:    5 * time.Second,
		Logger:         zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	confA := &types.OrderConfirmation{Venue: types.VenueA, OrderID: "a-1"}
	if _, err := ft.VerifyFills(ctx, confA, nil, 10); err == nil {
		t.Fatal("expected context error")
	}
}

func TestVerifyFills_NoConfirmations(t *testing.T) {
	ft := NewFillTracker(FillTrackerConfig{Logger: zap.NewNop()})
	if _, err := ft.VerifyFills(context.Background(), nil, nil, 10); err == nil {
		t.Fatal("expected error with nothing to verify")
	}
}
