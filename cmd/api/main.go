// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"go.opentelemetry.io/otel/trace"

	"github.com/gotitgames/catalog/internal/admin"
	"github.com/gotitgames/catalog/internal/app"
	"github.com/gotitgames/catalog/internal/auth"
	"github.com/gotitgames/catalog/internal/availability"
	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/game"
	"github.com/gotitgames/catalog/internal/health"
	"github.com/gotitgames/catalog/internal/metrics"
	"github.com/gotitgames/catalog/internal/middleware"
	"github.com/gotitgames/catalog/internal/server"
	"github.com/gotitgames/catalog/internal/subscription"
	"github.com/gotitgames/catalog/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.MigrateOnStart {
		if err := core.Migrate(cfg.Database.URL, migrations.FS, logger); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	bus, err := events.NewBus(cfg.Events, logger)
	if err != nil {
		return err
	}
	consumer, err := events.NewConsumer(bus, logger)
	if err != nil {
		return err
	}
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("event consumer stopped", "error", err)
		}
	}()
	logger.Info("event bus started", "driver", bus.Driver())

	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token verifier initialized",
		"algorithm", cfg.JWT.Algorithm,
		"issuer", cfg.JWT.Issuer,
	)

	var tracer trace.Tracer
	if telemetry != nil {
		tracer = telemetry.Tracer
	}

	svc, err := app.Build(app.Deps{
		Config:    cfg,
		DB:        db.DB,
		Redis:     redis.Client,
		Publisher: bus,
		Tracer:    tracer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if seeded, err := svc.Subscriptions.Seed(ctx); err != nil {
		logger.Warn("subscription seed failed", "error", err)
	} else if seeded > 0 {
		logger.Info("subscriptions seeded", "count", seeded)
	}

	subscriptionHandler := subscription.NewHandler(svc.Subscriptions)
	gameHandler := game.NewHandler(svc.Games)
	catalogHandler := catalog.NewHandler(svc.Catalog)
	availabilityHandler := availability.NewHandler(svc.Availability)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis, Optional: true},
	)

	limits := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Policies: []middleware.Policy{
			{
				Name: middleware.PolicyGlobal,
				Limit: redis_rate.Limit{
					Rate:   cfg.RateLimit.Requests,
					Burst:  cfg.RateLimit.Burst,
					Period: cfg.RateLimit.Window,
				},
				Key: middleware.KeyByIP,
			},
			{
				Name:  middleware.PolicyPersonal,
				Limit: middleware.PerMinute(cfg.RateLimit.PersonalRequests, cfg.RateLimit.PersonalRequests/3+1),
				Key:   middleware.KeyByUser,
			},
			{
				Name:  middleware.PolicySync,
				Limit: middleware.PerHour(cfg.RateLimit.SyncTriggers, 2),
				Key:   middleware.KeyBySyncJob,
			},
		},
		Logger: logger,
	})

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Jobs:       svc.Registry,
		Games:      svc.Games,
		Entries:    svc.Catalog,
		Holders:    svc.Subscriptions,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Logger:     logger,

		TriggerLimit: limits.Handler(middleware.PolicySync),
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(limits.Handler(middleware.PolicyGlobal))
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authenticator := middleware.Authenticator(verifier)
	optionalAuth := middleware.OptionalAuth(verifier)
	personal := chi.Chain(authenticator, limits.Handler(middleware.PolicyPersonal)).Handler

	router.Route("/v1", func(r chi.Router) {
		subscriptionHandler.RegisterRoutes(r, personal)
		gameHandler.RegisterRoutes(r)
		availabilityHandler.RegisterRoutes(r, personal, optionalAuth)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			subscriptionHandler.RegisterAdminRoutes(r)
			gameHandler.RegisterAdminRoutes(r)
			catalogHandler.RegisterAdminRoutes(r)
			adminHandler.RegisterAdminRoutes(r)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	adminHandler.Wait()

	if err := consumer.Close(); err != nil {
		logger.Error("event consumer close error", "error", err)
	}
	if err := bus.Close(); err != nil {
		logger.Error("event bus close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}
