// AngelaMos | 2026
// driver.go

package syncjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/game"
	"github.com/gotitgames/catalog/internal/metrics"
	"github.com/gotitgames/catalog/internal/provider"
	"github.com/gotitgames/catalog/internal/subscription"
)

// CompanionTier is the Game Pass tier that carries EA Play titles the base
// collections do not list.
const CompanionTier = "ultimate"

type Status string

const (
	StatusSuccess            Status = "success"
	StatusPartial            Status = "partial"
	StatusAPIError           Status = "api_error"
	StatusConfigurationError Status = "configuration_error"
	StatusError              Status = "error"
)

// Summary is the outcome of one job run. It is always produced, even when
// the run failed.
type Summary struct {
	Job        string          `json:"job"`
	Status     Status          `json:"status"`
	Synced     int             `json:"synced"`
	Errors     int             `json:"errors"`
	Total      int             `json:"total"`
	Source     provider.Source `json:"source,omitempty"`
	Message    string          `json:"message,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

type Resolver interface {
	Resolve(ctx context.Context, rec provider.Record) (game.Resolution, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, in catalog.ReconcileInput) (catalog.Result, error)
}

type Subscriptions interface {
	GetBySlug(ctx context.Context, slug string) (*subscription.Subscription, error)
}

// Deps carries what a sync run needs. Everything is passed explicitly.
type Deps struct {
	Resolver      Resolver
	Reconciler    Reconciler
	Subscriptions Subscriptions
	Publisher     events.Publisher
	Clock         core.Clock
	Logger        *slog.Logger
	Tracer        trace.Tracer
}

type Driver struct {
	deps Deps
}

func NewDriver(deps Deps) *Driver {
	if deps.Publisher == nil {
		deps.Publisher = events.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	return &Driver{deps: deps}
}

// run is the per-invocation state of one adapter sync.
type run struct {
	*Driver
	job       string
	sub       *subscription.Subscription
	companion *subscription.Subscription
	logger    *slog.Logger
}

// Run fetches adapter's catalog and reconciles every record in fetch order.
// A failed record is counted and skipped; a fetch failure stops the run but
// keeps everything already written.
func (d *Driver) Run(ctx context.Context, adapter provider.Adapter, params provider.Params) (summary Summary) {
	job := adapter.Name()
	summary = Summary{Job: job, StartedAt: d.deps.Clock.Now()}
	logger := d.deps.Logger.With("job", job)

	ctx, span := core.StartSpan(ctx, d.deps.Tracer, "sync."+job,
		attribute.String("subscription", adapter.Subscription()),
		attribute.Int("limit", params.Limit),
	)
	defer func() {
		var spanErr error
		if summary.Status != StatusSuccess {
			spanErr = errors.New(string(summary.Status))
		}
		span.SetAttributes(
			attribute.Int("synced", summary.Synced),
			attribute.Int("errors", summary.Errors),
		)
		core.EndSpan(span, spanErr)
		d.finish(ctx, &summary, logger)
	}()

	sub, err := d.deps.Subscriptions.GetBySlug(ctx, adapter.Subscription())
	if err != nil {
		summary.Status = StatusConfigurationError
		if !errors.Is(err, core.ErrNotFound) {
			summary.Status = StatusError
		}
		summary.Message = fmt.Sprintf("subscription %q: %v", adapter.Subscription(), err)
		return summary
	}

	r := &run{Driver: d, job: job, sub: sub, logger: logger}

	stream := adapter.Fetch(ctx, params)
	var fetchErr error
	for rec, err := range stream.All() {
		if err != nil {
			fetchErr = err
			break
		}

		summary.Total++
		if err := r.apply(ctx, rec); err != nil {
			summary.Errors++
			metrics.SyncItems.WithLabelValues(job, "error").Inc()
			logger.Warn("sync item failed", "title", rec.Title, "error", err)
			continue
		}
		summary.Synced++
		metrics.SyncItems.WithLabelValues(job, "synced").Inc()
	}
	summary.Source = stream.Source()

	switch {
	case fetchErr != nil && provider.IsConfigurationError(fetchErr):
		summary.Status = StatusConfigurationError
		summary.Message = fetchErr.Error()
	case fetchErr != nil && summary.Total == 0:
		summary.Status = StatusAPIError
		summary.Message = fetchErr.Error()
	case fetchErr != nil:
		summary.Status = StatusPartial
		summary.Message = fetchErr.Error()
	case summary.Total > 0 && summary.Errors == summary.Total:
		summary.Status = StatusError
		summary.Message = "every record failed"
	case summary.Errors > 0:
		summary.Status = StatusPartial
	default:
		summary.Status = StatusSuccess
	}

	return summary
}

func (d *Driver) finish(ctx context.Context, s *Summary, logger *slog.Logger) {
	s.FinishedAt = d.deps.Clock.Now()

	metrics.SyncRuns.WithLabelValues(s.Job, string(s.Status)).Inc()
	metrics.SyncDuration.WithLabelValues(s.Job).Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())

	logger.Info("sync finished",
		"status", s.Status,
		"synced", s.Synced,
		"errors", s.Errors,
		"total", s.Total,
		"source", s.Source,
		"message", s.Message,
	)

	err := d.deps.Publisher.PublishSyncCompleted(ctx, events.SyncCompleted{
		Job:        s.Job,
		Status:     string(s.Status),
		Synced:     s.Synced,
		Errors:     s.Errors,
		Total:      s.Total,
		Source:     string(s.Source),
		Message:    s.Message,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	})
	if err != nil {
		logger.Warn("publish sync summary failed", "error", err)
	}
}

func (r *run) apply(ctx context.Context, rec provider.Record) error {
	res, err := r.deps.Resolver.Resolve(ctx, rec)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	platforms := rec.Platforms
	if len(platforms) == 0 {
		return fmt.Errorf("record %q has no platforms: %w", rec.Title, core.ErrInvalidInput)
	}

	for _, p := range platforms {
		if _, err := r.deps.Reconciler.Reconcile(ctx, catalog.ReconcileInput{
			GameID:         res.GameID,
			SubscriptionID: r.sub.ID,
			Platform:       string(p),
			Tier:           rec.Tier,
			Status:         catalog.StatusAvailable,
			NativeID:       rec.NativeID,
		}); err != nil {
			return fmt.Errorf("reconcile %s: %w", p, err)
		}
	}

	if !rec.DualListed {
		return nil
	}

	companion, err := r.companionSubscription(ctx)
	if err != nil {
		return err
	}

	for _, p := range platforms {
		if _, err := r.deps.Reconciler.Reconcile(ctx, catalog.ReconcileInput{
			GameID:         res.GameID,
			SubscriptionID: companion.ID,
			Platform:       string(p),
			Tier:           CompanionTier,
			Status:         catalog.StatusAvailable,
			NativeID:       rec.NativeID,
		}); err != nil {
			return fmt.Errorf("reconcile companion %s: %w", p, err)
		}
	}

	return nil
}

func (r *run) companionSubscription(ctx context.Context) (*subscription.Subscription, error) {
	if r.companion != nil {
		return r.companion, nil
	}

	sub, err := r.deps.Subscriptions.GetBySlug(ctx, subscription.SlugGamePass)
	if err != nil {
		return nil, fmt.Errorf("companion subscription: %w", err)
	}
	r.companion = sub
	return sub, nil
}
