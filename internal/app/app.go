// AngelaMos | 2026
// app.go

// Package app assembles the catalog services shared by the API server and
// the sync runner.
package app

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/gotitgames/catalog/internal/availability"
	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/expiry"
	"github.com/gotitgames/catalog/internal/game"
	"github.com/gotitgames/catalog/internal/igdb"
	"github.com/gotitgames/catalog/internal/provider"
	"github.com/gotitgames/catalog/internal/provider/psplus"
	"github.com/gotitgames/catalog/internal/provider/ubisoft"
	"github.com/gotitgames/catalog/internal/provider/xbox"
	"github.com/gotitgames/catalog/internal/rawg"
	"github.com/gotitgames/catalog/internal/subscription"
	"github.com/gotitgames/catalog/internal/syncjob"
)

// Services holds every domain service built over one database.
type Services struct {
	Subscriptions *subscription.Service
	Games         *game.Service
	Catalog       *catalog.Service
	CatalogRepo   catalog.Repository
	Reconciler    *catalog.Reconciler
	Resolver      *game.Resolver
	Scanner       *expiry.Scanner
	Availability  *availability.Engine
	Registry      *syncjob.Registry
}

type Deps struct {
	Config    *config.Config
	DB        *sqlx.DB
	Redis     *redis.Client
	Publisher events.Publisher
	Tracer    trace.Tracer
	Clock     core.Clock
	Logger    *slog.Logger
}

func Build(d Deps) (*Services, error) {
	cfg := d.Config
	clock := d.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}

	subsRepo := subscription.NewRepository(d.DB)
	subs := subscription.NewService(subsRepo, d.Logger)

	enricher, err := newEnricher(cfg, clock, d.Tracer, d.Logger)
	if err != nil {
		return nil, err
	}

	gameRepo := game.NewRepository(d.DB)
	resolver := game.NewResolver(gameRepo, enricher, cfg.Resolver, d.Logger)
	games := game.NewService(gameRepo, resolver, enricher, d.Logger)

	catalogRepo := catalog.NewRepository(d.DB)
	reconciler := catalog.NewReconciler(catalogRepo, subs, d.Publisher, clock, d.Logger)
	catalogSvc := catalog.NewService(catalogRepo, reconciler, subs, d.Publisher, clock, d.Logger)

	scanner := expiry.NewScanner(catalogRepo, d.Publisher, clock, cfg.Expiry, d.Logger)
	engine := availability.NewEngine(catalogRepo, subs, d.Logger)

	driver := syncjob.NewDriver(syncjob.Deps{
		Resolver:      resolver,
		Reconciler:    reconciler,
		Subscriptions: subs,
		Publisher:     d.Publisher,
		Clock:         clock,
		Logger:        d.Logger,
		Tracer:        d.Tracer,
	})

	var store syncjob.StatusStore
	if d.Redis != nil {
		store = syncjob.NewRedisStatusStore(d.Redis)
	}

	registry := syncjob.NewRegistry(
		driver, scanner, subs, store, clock, cfg.Sync, d.Logger,
		Adapters(cfg.Providers, d.Tracer, d.Logger)...,
	)

	return &Services{
		Subscriptions: subs,
		Games:         games,
		Catalog:       catalogSvc,
		CatalogRepo:   catalogRepo,
		Reconciler:    reconciler,
		Resolver:      resolver,
		Scanner:       scanner,
		Availability:  engine,
		Registry:      registry,
	}, nil
}

func fetcher(name string, cfg config.ProvidersConfig, tracer trace.Tracer) *provider.Fetcher {
	return provider.NewFetcher(provider.FetcherConfig{
		Provider:        name,
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.Timeout,
		RequestDelay:    cfg.RequestDelay,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
		Tracer:          tracer,
	})
}

// Adapters builds the four provider adapters. Game Pass and EA Play share
// one Microsoft Store client.
func Adapters(cfg config.ProvidersConfig, tracer trace.Tracer, logger *slog.Logger) []provider.Adapter {
	msStore := xbox.NewClient(fetcher("xbox", cfg, tracer), cfg.Xbox)

	return []provider.Adapter{
		xbox.NewGamePass(msStore),
		psplus.New(fetcher(psplus.Name, cfg, tracer), cfg.PSPlus),
		xbox.NewEAPlay(msStore, logger),
		ubisoft.New(fetcher(ubisoft.Name, cfg, tracer), cfg.Ubisoft, logger),
	}
}

// newEnricher chains IGDB ahead of RAWG. Either source is skipped when its
// credentials are absent; with neither, resolution runs without metadata.
func newEnricher(
	cfg *config.Config,
	clock core.Clock,
	tracer trace.Tracer,
	logger *slog.Logger,
) (game.Enricher, error) {
	var igdbClient, rawgClient game.Enricher

	if cfg.IGDB.Enabled() {
		tokens, err := igdb.NewTokenCache(cfg.IGDB, &http.Client{Timeout: cfg.Providers.Timeout}, clock)
		if err != nil {
			return nil, err
		}
		igdbClient = igdb.NewClient(fetcher(igdb.Name, cfg.Providers, tracer), tokens, cfg.IGDB)
	} else {
		logger.Warn("IGDB credentials missing, IGDB enrichment disabled")
	}

	if cfg.RAWG.Enabled() {
		c, err := rawg.NewClient(fetcher(rawg.Name, cfg.Providers, tracer), cfg.RAWG)
		if err != nil {
			return nil, err
		}
		rawgClient = c
	} else {
		logger.Warn("RAWG api key missing, RAWG enrichment disabled")
	}

	return game.Chain(igdbClient, rawgClient), nil
}

func NewLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
