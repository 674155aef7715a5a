package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/alerting"
	"github.com/mselser95/crossmarket-arb/internal/circuitbreaker"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/feed"
	"github.com/mselser95/crossmarket-arb/internal/orchestrator"
	"github.com/mselser95/crossmarket-arb/internal/storage"
	"github.com/mselser95/crossmarket-arb/internal/venue/kalshi"
	"github.com/mselser95/crossmarket-arb/pkg/config"
	"github.com/mselser95/crossmarket-arb/pkg/healthprobe"
	"github.com/mselser95/crossmarket-arb/pkg/httpserver"
	"github.com/mselser95/crossmarket-arb/pkg/websocket"
)

// App wires the engine together: venue clients, the stream pool and quote
// cache, the executor, the orchestrator and the HTTP surface.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	health     *healthprobe.HealthChecker
	httpServer *httpserver.Server
	alerter    *alerting.Manager
	store      storage.Storage
	kalshi     *kalshi.Client
	wsPool     *websocket.Pool
	quotes     *feed.Cache
	breaker    *circuitbreaker.BalanceBreaker
	executor   *execution.Executor
	engine     *orchestrator.Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
