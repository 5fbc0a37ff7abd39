package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/adapters/canvas"
	redisadapter "github.com/target/gradesync/internal/adapters/redis"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/data"
	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/export"
	"github.com/target/gradesync/internal/observability/statsd"
	"github.com/target/gradesync/internal/service"
)

// EngineOptions are the caller-supplied pieces of the engine.
type EngineOptions struct {
	Config       config.AppConfig
	Logger       *slog.Logger
	Reporter     core.StatusReporter
	Prerequisite core.Prerequisite
}

// Engine owns the orchestrator and every connection it depends on.
type Engine struct {
	Orchestrator *service.Orchestrator

	propagator *service.OverridePropagator
	closers    []func() error
	logger     *slog.Logger
}

// NewEngine connects the stores and builds the orchestrator. Close releases
// everything, including on partial failure.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	engine, err := e.build(ctx, cfg, opts)
	if err != nil {
		if closeErr := e.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}
	return engine, nil
}

func (e *Engine) build(ctx context.Context, cfg config.AppConfig, opts EngineOptions) (*Engine, error) {
	logger := e.logger
	if err := cfg.Canvas.Validate(); err != nil {
		return nil, fmt.Errorf("canvas config: %w", err)
	}

	ports := service.OrchestratorPorts{
		Reporter:     opts.Reporter,
		Prerequisite: opts.Prerequisite,
	}
	// Left nil when metrics are disabled.
	var metrics statsd.Sink
	if client := buildMetrics(logger, cfg.Observability.Metrics); client != nil {
		e.closers = append(e.closers, client.Close)
		metrics = client
	}
	if notifier := buildFailureNotifier(logger, cfg.Observability.Alerts); notifier.Enabled() {
		ports.Notifier = notifier
	}

	store, lease, err := e.connectRunStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ports.Store, ports.Lease, ports.LastSuccess = store, lease, store

	var failures core.PropagationFailureRepository
	if cfg.Postgres.Enabled {
		db, dbErr := ConnectDB(ctx, cfg.Postgres, logger)
		if dbErr != nil {
			return nil, dbErr
		}
		e.closers = append(e.closers, db.Close)
		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, db, logger); err != nil {
				return nil, err
			}
		}
		ports.History = data.NewRunHistoryRepo(db)
		failures = data.NewPropagationFailureRepo(db)
	}

	client, err := NewCanvasClient(cfg.Canvas, logger)
	if err != nil {
		return nil, err
	}
	ports.API = client

	resolver, err := service.NewEnrollmentResolver(service.EnrollmentResolverOptions{
		Lister: client,
		Size:   cfg.Sync.EnrollmentCacheSize,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create enrollment resolver: %w", err)
	}
	propagator, err := service.NewOverridePropagator(service.OverridePropagatorOptions{
		Ports: service.PropagatorPorts{Writer: client, Resolver: resolver, Failures: failures},
		Config: service.PropagatorConfig{
			Workers:     cfg.Sync.PropagatorWorkers,
			QueueSize:   cfg.Sync.PropagatorQueueSize,
			MaxAttempts: cfg.Sync.PropagatorMaxAttempts,
			Backoff:     cfg.Sync.PropagatorBackoff,
			Scale:       cfg.Sync.OverrideScale,
		},
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create override propagator: %w", err)
	}
	propagator.Start(ctx)
	e.propagator = propagator
	ports.Propagator = propagator

	exporter, err := export.NewFromConfig(cfg.Export, logger)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	ports.Exporter = exporter

	exclusions, err := cfg.Sync.LoadExclusions()
	if err != nil {
		return nil, err
	}

	orch, err := service.NewOrchestrator(service.OrchestratorOptions{
		Ports: ports,
		Config: service.OrchestratorConfig{
			Sync: cfg.Sync,
			Exclusions: gradesync.Exclusions{
				MetricIDs: exclusions.MetricIDs,
				Keywords:  exclusions.Keywords,
			},
		},
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	e.Orchestrator = orch
	return e, nil
}

// NewCanvasClient builds the authenticated grading API client.
func NewCanvasClient(cfg config.CanvasConfig, logger *slog.Logger) (*canvas.Client, error) {
	hc, err := canvas.NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	paths, err := canvas.NewResponsePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("compile response paths: %w", err)
	}
	client, err := canvas.NewClient(canvas.ClientOptions{
		BaseURL:     cfg.BaseURL,
		HTTPClient:  hc,
		PerPage:     cfg.PerPage,
		GraphQLPath: cfg.GraphQLPath,
		UserAgent:   cfg.UserAgent,
		Paths:       paths,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create canvas client: %w", err)
	}
	return client, nil
}

// RunStateBackend is a run store that also keeps each course's last successful run.
type RunStateBackend interface {
	core.RunStore
	core.LastSuccessStore
}

// ConnectRunStore opens the configured run state backend.
func ConnectRunStore(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (RunStateBackend, core.RunLease, func() error, error) {
	switch cfg.RunStore.Backend {
	case config.RunStoreSQLite:
		db, err := data.OpenSQLite(ctx, cfg.RunStore.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.InfoContext(ctx, "sqlite run store opened", "path", cfg.RunStore.SQLitePath)
		return data.NewSQLiteRunStore(db, nil), data.NewSQLiteRunLease(db, nil), db.Close, nil
	default:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		store := redisadapter.NewRunStore(redisadapter.RunStoreOptions{Client: client, Prefix: cfg.RunStore.KeyPrefix})
		return store, redisadapter.NewRunLease(client, cfg.RunStore.KeyPrefix), client.Close, nil
	}
}

func (e *Engine) connectRunStore(ctx context.Context, cfg config.AppConfig) (RunStateBackend, core.RunLease, error) {
	store, lease, closer, err := ConnectRunStore(ctx, cfg, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect run store: %w", err)
	}
	e.closers = append(e.closers, closer)
	return store, lease, nil
}

// Close stops the propagator, waiting for queued overrides, then closes
// every connection in reverse order.
func (e *Engine) Close() error {
	var errs []error
	if e.propagator != nil {
		if err := e.propagator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close propagator: %w", err))
		}
		e.propagator = nil
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
