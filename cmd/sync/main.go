// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/gotitgames/catalog/internal/app"
	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/provider"
	"github.com/gotitgames/catalog/internal/syncjob"
	"github.com/gotitgames/catalog/migrations"
)

type options struct {
	configPath string
	job        string
	limit      int
	classics   bool
	migrate    bool
	setClassic bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	flag.StringVar(&opts.job, "job", syncjob.JobAll, "job to run: a provider name, expiry, seed or all")
	flag.IntVar(&opts.limit, "limit", 0, "maximum records per provider, 0 for no limit")
	flag.BoolVar(&opts.classics, "classics", true, "include the PS Plus classics catalog")
	flag.BoolVar(&opts.migrate, "migrate", false, "apply database migrations before running")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "classics" {
			opts.setClassic = true
		}
	})

	if err := run(opts); err != nil {
		slog.Error("sync failed to start", "error", err)
		os.Exit(1)
	}
}

// run exits non-zero only when the job cannot start. A job that ran and
// reported provider errors is still a completed run; its status is in the
// printed summary.
func run(opts options) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.setClassic {
		cfg.Providers.PSPlus.IncludeClassics = opts.classics
	}

	logger := app.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if opts.migrate {
		if err := core.Migrate(cfg.Database.URL, migrations.FS, logger); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exit

	var redisClient *redis.Client
	if rdb, err := core.NewRedis(ctx, cfg.Redis); err != nil {
		logger.Warn("redis unavailable, sync status kept in memory", "error", err)
	} else {
		redisClient = rdb.Client
		defer rdb.Close() //nolint:errcheck // process exit
	}

	bus, err := events.NewBus(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer bus.Close() //nolint:errcheck // process exit

	svc, err := app.Build(app.Deps{
		Config:    cfg,
		DB:        db.DB,
		Redis:     redisClient,
		Publisher: bus,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	job := strings.ToLower(strings.TrimSpace(opts.job))
	if !svc.Registry.Has(job) {
		return fmt.Errorf("unknown job %q, available: %s, %s",
			job, strings.Join(svc.Registry.Jobs(), ", "), syncjob.JobAll)
	}

	// Provider jobs need their subscription rows.
	if job != syncjob.JobSeed {
		if _, err := svc.Subscriptions.Seed(ctx); err != nil {
			return fmt.Errorf("seed subscriptions: %w", err)
		}
	}

	params := provider.Params{Limit: opts.limit}

	var out any
	if job == syncjob.JobAll {
		out = svc.Registry.RunAll(ctx, params)
	} else {
		summary, err := svc.Registry.RunJob(ctx, job, params)
		if err != nil {
			return err
		}
		out = summary
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
