package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("trading-mode", a.cfg.TradingMode),
		zap.Bool("dry-run", a.cfg.DryRun),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.health.SetReady(true)
	a.alerter.BotStarted(a.cfg.TradingMode, a.cfg.DryRun)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.WSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	err := a.wsPool.Start()
	if err != nil {
		return fmt.Errorf("start stream pool: %w", err)
	}

	err = a.quotes.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start quote cache: %w", err)
	}

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	err = a.engine.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()

	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
		a.alerter.BotStopped(sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
		a.alerter.BotStopped("context cancelled")
	}

	return a.Shutdown()
}
