package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ballot "ballot/contexts/governance/ballot-service"
	"ballot/contexts/governance/ballot-service/adapters/memory"
	postgresadapter "ballot/contexts/governance/ballot-service/adapters/postgres"
	workerapp "ballot/contexts/governance/ballot-service/application/workers"
	"ballot/contexts/governance/ballot-service/ports"
	"ballot/internal/platform/config"
	"ballot/internal/platform/db"
	"ballot/internal/platform/httpserver"
	"ballot/internal/platform/messaging"
	"ballot/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	// worker runs in-process when the state store lives in memory.
	worker *WorkerApp
	logger *slog.Logger
}

type WorkerApp struct {
	database      *db.Database
	bus           *messaging.EventBus
	outboxRelay   workerapp.OutboxRelay
	leaderTracker *workerapp.LeaderTracker
	pollInterval  time.Duration
	logger        *slog.Logger
}

// storage is the set of ports served by one backing store.
type storage struct {
	ballots     ports.BallotRepository
	idempotency ports.IdempotencyStore
	outbox      ports.OutboxRepository
	dedup       ports.EventDedupStore
	clock       ports.Clock
	ids         ports.IDGenerator
	database    *db.Database
}

func openStorage(cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		store := memory.NewStore(nil)
		return storage{
			ballots:     store,
			idempotency: store,
			outbox:      store,
			dedup:       store,
			clock:       postgresadapter.SystemClock{},
			ids:         postgresadapter.UUIDGenerator{},
		}, nil
	case config.DriverPostgres, config.DriverSQLite:
		dsn := cfg.PostgresDSN
		if cfg.DatabaseDriver == config.DriverSQLite {
			dsn = cfg.SQLitePath
		}
		database, err := db.Connect(cfg.DatabaseDriver, dsn)
		if err != nil {
			return storage{}, err
		}
		if cfg.AutoMigrate {
			if err := postgresadapter.AutoMigrate(database.DB); err != nil {
				_ = database.Close()
				return storage{}, fmt.Errorf("migrate ballot schema: %w", err)
			}
		}
		repo := postgresadapter.NewRepository(database.DB, logger)
		return storage{
			ballots:     repo,
			idempotency: repo,
			outbox:      repo,
			dedup:       repo,
			clock:       postgresadapter.SystemClock{},
			ids:         postgresadapter.UUIDGenerator{},
			database:    database,
		}, nil
	default:
		return storage{}, errors.New("unsupported database driver: " + cfg.DatabaseDriver)
	}
}

func BuildAPI(cfg config.Config) (*APIApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry, ballotMetrics := metrics.NewRegistry()
	module := ballot.NewModule(ballot.Dependencies{
		Ballots:        store.ballots,
		Idempotency:    store.idempotency,
		Clock:          store.clock,
		IDGen:          store.ids,
		Observer:       ballotMetrics,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	app := &APIApp{
		server:   httpserver.New(module, metrics.Handler(registry), logger, normalizeAddr(cfg.HTTPPort)),
		database: store.database,
		logger:   logger,
	}
	if cfg.DatabaseDriver == config.DriverMemory {
		app.worker = newWorker(cfg, store, logger.With("process", "embedded-worker"))
	}
	return app, nil
}

func BuildWorker(cfg config.Config) (*WorkerApp, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		return nil, fmt.Errorf("%w: worker needs a shared database, got driver %q", config.ErrInvalidConfig, cfg.DatabaseDriver)
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newWorker(cfg, store, logger), nil
}

func newWorker(cfg config.Config, store storage, logger *slog.Logger) *WorkerApp {
	bus := messaging.NewEventBus(logger)
	return &WorkerApp{
		database: store.database,
		bus:      bus,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    store.outbox,
			Publisher: bus,
			Clock:     store.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		leaderTracker: &workerapp.LeaderTracker{
			Subscriber: bus,
			Dedup:      store.dedup,
			Ballots:    store.ballots,
			Clock:      store.clock,
			DedupTTL:   7 * 24 * time.Hour,
			Disabled:   !cfg.EnableLeaderTracker,
			Logger:     logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts the server down.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_worker", a.worker != nil,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() {
		errs <- a.server.Start()
	}()
	if a.worker != nil {
		go func() {
			errs <- a.worker.Run(runCtx)
		}()
	}

	select {
	case err := <-errs:
		cancel()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if a.worker != nil {
		a.worker.bus.Wait()
	}
	return nil
}

func (a *APIApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.leaderTracker.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if _, err := w.outboxRelay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_outbox_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	w.bus.Wait()
	if w.database != nil {
		return w.database.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
