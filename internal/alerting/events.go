package alerting

import "fmt"

// Convenience event constructors. Each maps one engine event to an alert
// type and severity; the per-type cooldown keys off these type strings.

// TradeExecuted reports a completed dual-leg execution.
func (m *Manager) TradeExecuted(name string, contracts, netCents int) {
	m.Info("trade_executed",
		fmt.Sprintf("executed %d contracts on %q, expected net %d¢/contract", contracts, name, netCents))
}

// TradeFailed reports a failed execution attempt.
func (m *Manager) TradeFailed(name, reason string) {
	m.Warn("trade_failed", fmt.Sprintf("execution failed on %q: %s", name, reason))
}

// PartialFill reports a one-legged fill. Critical: the book is exposed
// directionally until someone intervenes.
func (m *Manager) PartialFill(name, detail string) {
	m.Critical("partial_fill", fmt.Sprintf("PARTIAL FILL on %q: %s — manual intervention required", name, detail))
}

// CircuitBreakerTripped reports the trading halt.
func (m *Manager) CircuitBreakerTripped(balance, threshold float64) {
	m.Critical("circuit_breaker_tripped",
		fmt.Sprintf("trading halted: balance $%.2f below threshold $%.2f", balance, threshold))
}

// CircuitBreakerReset reports trading resuming.
func (m *Manager) CircuitBreakerReset(balance float64) {
	m.Info("circuit_breaker_reset", fmt.Sprintf("trading resumed: balance recovered to $%.2f", balance))
}

// PositionRedeemed reports a settled position paying out.
func (m *Manager) PositionRedeemed(name string, payoutDollars float64) {
	m.Info("position_redeemed", fmt.Sprintf("position on %q redeemed for $%.2f", name, payoutDollars))
}

// DailySummary reports the end-of-day statistics line.
func (m *Manager) DailySummary(trades, wins, losses int, netPnlDollars float64) {
	m.Info("daily_summary",
		fmt.Sprintf("daily summary: %d trades (%dW/%dL), net P&L $%.2f", trades, wins, losses, netPnlDollars))
}

// BotStarted reports engine startup.
func (m *Manager) BotStarted(mode string, dryRun bool) {
	m.Info("bot_started", fmt.Sprintf("engine started, mode=%s dry_run=%t", mode, dryRun))
}

// BotStopped reports engine shutdown.
func (m *Manager) BotStopped(reason string) {
	m.Info("bot_stopped", "engine stopped: "+reason)
}

// BigOpportunity reports a spread above the alert threshold, whether or
// not it gets executed.
func (m *Manager) BigOpportunity(name string, netCents int) {
	m.Info("big_opportunity", fmt.Sprintf("large spread on %q: net %d¢/contract", name, netCents))
}
