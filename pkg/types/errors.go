package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components. Callers branch with errors.Is.
var (
	// ErrInsufficientLiquidity is returned by the book walker when the ask
	// ladder cannot cover the requested size. Callers must treat it as a
	// skip, never as a partial order.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrNoOrderbook is returned when a venue has no book for a token.
	ErrNoOrderbook = errors.New("no orderbook")

	// ErrNotConfigured is returned by venue clients when credentials are
	// missing; reads continue, placement is disabled.
	ErrNotConfigured = errors.New("client not configured for trading")

	// ErrOrderRejected wraps a venue-side 4xx rejection.
	ErrOrderRejected = errors.New("order rejected by venue")
)

// OrderError represents an error that occurred during order placement.
type OrderError struct {
	Venue   Venue
	Code    string // API error code or internal error code
	Message string
	OrderID string
	Side    Side
}

func (e *OrderError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("venue %s %s order failed (ID: %s): %s (%s)", e.Venue, e.Side, e.OrderID, e.Message, e.Code)
	}

	return fmt.Sprintf("venue %s %s order failed: %s (%s)", e.Venue, e.Side, e.Message, e.Code)
}

// Unwrap lets errors.Is treat venue rejections uniformly.
func (e *OrderError) Unwrap() error {
	return ErrOrderRejected
}
