// AngelaMos | 2026
// registry.go

package syncjob

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/expiry"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	JobExpiry = "expiry"
	JobSeed   = "seed"
	JobAll    = "all"
)

var ErrUnknownJob = fmt.Errorf("unknown job: %w", core.ErrNotFound)

type Scanner interface {
	Scan(ctx context.Context) (expiry.Result, error)
}

type Seeder interface {
	Seed(ctx context.Context) (int, error)
}

// Registry exposes one callable entrypoint per job for an external
// scheduler or an admin trigger.
type Registry struct {
	driver   *Driver
	adapters []provider.Adapter
	scanner  Scanner
	seeder   Seeder
	store    StatusStore
	clock    core.Clock
	cfg      config.SyncConfig
	logger   *slog.Logger
}

func NewRegistry(
	driver *Driver,
	scanner Scanner,
	seeder Seeder,
	store StatusStore,
	clock core.Clock,
	cfg config.SyncConfig,
	logger *slog.Logger,
	adapters ...provider.Adapter,
) *Registry {
	if store == nil {
		store = NewMemoryStatusStore()
	}
	if clock == nil {
		clock = core.SystemClock{}
	}

	return &Registry{
		driver:   driver,
		adapters: adapters,
		scanner:  scanner,
		seeder:   seeder,
		store:    store,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Jobs lists the runnable job names, providers first.
func (r *Registry) Jobs() []string {
	names := make([]string, 0, len(r.adapters)+3)
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	if r.scanner != nil {
		names = append(names, JobExpiry)
	}
	if r.seeder != nil {
		names = append(names, JobSeed)
	}
	return names
}

func (r *Registry) Has(name string) bool {
	if name == JobAll {
		return true
	}
	for _, job := range r.Jobs() {
		if job == name {
			return true
		}
	}
	return false
}

func (r *Registry) adapter(name string) provider.Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

func (r *Registry) params(p provider.Params) provider.Params {
	if p.Limit <= 0 && r.cfg.ItemLimit > 0 {
		p.Limit = r.cfg.ItemLimit
	}
	return p
}

func (r *Registry) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.JobTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.JobTimeout)
	}
	return context.WithCancel(ctx)
}

// RunJob runs one named job and records its summary.
func (r *Registry) RunJob(ctx context.Context, name string, params provider.Params) (Summary, error) {
	ctx, cancel := r.timeout(ctx)
	defer cancel()

	var summary Summary
	switch {
	case name == JobExpiry && r.scanner != nil:
		summary = r.scan(ctx)
	case name == JobSeed && r.seeder != nil:
		summary = r.seed(ctx)
	default:
		a := r.adapter(name)
		if a == nil {
			return Summary{}, fmt.Errorf("%q: %w", name, ErrUnknownJob)
		}
		summary = r.driver.Run(ctx, a, r.params(params))
	}

	r.save(ctx, summary)
	return summary, nil
}

// RunAll runs every provider job concurrently, then the expiry scan. The
// summaries come back in Jobs order.
func (r *Registry) RunAll(ctx context.Context, params provider.Params) []Summary {
	summaries := make([]Summary, len(r.adapters))

	var wg sync.WaitGroup
	for i, a := range r.adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i], _ = r.RunJob(ctx, a.Name(), params) //nolint:errcheck // registered name
		}()
	}
	wg.Wait()

	if r.scanner != nil {
		s, _ := r.RunJob(ctx, JobExpiry, params) //nolint:errcheck // registered name
		summaries = append(summaries, s)
	}

	return summaries
}

func (r *Registry) Status(ctx context.Context) (map[string]Summary, error) {
	return r.store.All(ctx)
}

func (r *Registry) save(ctx context.Context, s Summary) {
	// The run context may already be past its deadline.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.store.Save(saveCtx, s); err != nil {
		r.logger.Warn("save sync status failed", "job", s.Job, "error", err)
	}
}

func (r *Registry) scan(ctx context.Context) Summary {
	s := Summary{Job: JobExpiry, StartedAt: r.clock.Now()}

	res, err := r.scanner.Scan(ctx)
	s.FinishedAt = r.clock.Now()
	s.Total = res.Candidates
	s.Synced = res.Updated
	s.Errors = res.Errors

	switch {
	case err != nil:
		s.Status = StatusError
		s.Message = err.Error()
	case res.Errors > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusSuccess
	}
	return s
}

func (r *Registry) seed(ctx context.Context) Summary {
	s := Summary{Job: JobSeed, StartedAt: r.clock.Now()}

	n, err := r.seeder.Seed(ctx)
	s.FinishedAt = r.clock.Now()
	s.Synced = n
	s.Total = n

	if err != nil {
		s.Status = StatusError
		s.Message = err.Error()
		return s
	}
	s.Status = StatusSuccess
	r.logger.Info("subscriptions seeded", "inserted", n)
	return s
}
