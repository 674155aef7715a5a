package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the graceful HTTP drain.
const shutdownTimeout = 10 * time.Second

// Shutdown stops every component in reverse start order: the engine stops
// trading first, then the feeds, then the outward surfaces.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.health.SetReady(false)
	a.cancel()

	err := a.engine.Close()
	if err != nil {
		a.logger.Error("orchestrator-close-error", zap.Error(err))
	}

	err = a.quotes.Close()
	if err != nil {
		a.logger.Error("quote-cache-close-error", zap.Error(err))
	}

	err = a.wsPool.Close()
	if err != nil {
		a.logger.Error("stream-pool-close-error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	err = a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	err = a.store.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.wg.Wait()

	// Last: drain any queued alerts so the shutdown notice gets out.
	a.alerter.Flush()

	a.logger.Info("application-shutdown-complete")

	return nil
}
