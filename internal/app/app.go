package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/id"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/db"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/graph"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/metrics"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/poi"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/qualify"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/worker"
)

// App holds the connections and services shared by every binary.
type App struct {
	Config   config.Config
	DB       *db.DB
	Redis    *redis.Client
	Graph    graph.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Catalog  engine.Catalog
	Services *service.Services
}

// New connects Postgres, Redis and the graph store and wires the tick
// executor behind the job service. Everything opened so far is closed when
// a later step fails.
func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Catalog: engine.DefaultCatalog()}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := id.Init(cfg.NodeID); err != nil {
		return nil, err
	}

	a.DB, err = db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	slog.InfoContext(ctx, "database connected")

	if cfg.Migrate {
		if err := a.DB.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	a.Redis = redis.NewClient(redisOpts)
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected")

	a.Graph, err = graph.New(ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("connecting graph store: %w", err)
	}
	if err := a.Graph.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring graph schema: %w", err)
	}
	slog.InfoContext(ctx, "graph store connected", "backend", cfg.Graph.Backend)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	stores := store.NewStores(a.DB.Conn())
	executor := engine.NewExecutor(
		stores.Jobs(),
		places.NewGoogleClient(cfg.Places),
		poi.NewWriter(stores.POIs(), a.Graph),
		qualify.FromConfig(cfg.Qualify),
		a.Catalog,
		engine.WithRecorder(a.Metrics),
	)

	a.Services = service.NewServices(
		stores,
		a.Graph,
		executor,
		worker.NewRedisLocker(a.Redis, cfg.Redis.KeyPrefix),
		a.Metrics,
		service.JobServiceConfig{
			DefaultBudget: engine.Budget{
				MaxRequests:   cfg.Tick.MaxRequests,
				MaxQueueItems: cfg.Tick.MaxQueueItems,
			},
			LockTTL:        cfg.Tick.LockTTL,
			Categories:     a.Catalog.Has,
			QueriesPerItem: a.Catalog.QueryCount,
		},
	)

	return a, nil
}

func (a *App) Close(ctx context.Context) {
	var errs []error
	if a.Graph != nil {
		errs = append(errs, a.Graph.Close(ctx))
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if err := errors.Join(errs...); err != nil {
		slog.ErrorContext(ctx, "closing connections", "error", err)
	}
}
