// AngelaMos | 2026
// reconciler.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/metrics"
	"github.com/gotitgames/catalog/internal/provider"
	"github.com/gotitgames/catalog/internal/subscription"
)

const subscriptionCacheTTL = time.Minute

var (
	ErrInvalidStatus   = fmt.Errorf("invalid status: %w", core.ErrInvalidInput)
	ErrInvalidPlatform = fmt.Errorf("invalid platform: %w", core.ErrInvalidInput)
	ErrInvalidTier     = fmt.Errorf("tier not offered by subscription: %w", core.ErrInvalidInput)
)

type Subscriptions interface {
	GetByID(ctx context.Context, id string) (*subscription.Subscription, error)
	GetBySlug(ctx context.Context, slug string) (*subscription.Subscription, error)
}

// Writer performs the keyed upsert.
type Writer interface {
	Upsert(ctx context.Context, e *Entry) (UpsertOutcome, error)
}

type ReconcileInput struct {
	GameID         string
	SubscriptionID string
	Platform       string
	Tier           string
	Status         Status
	AvailableDate  *time.Time
	LeavingDate    *time.Time
	NativeID       string
}

type Result struct {
	EntryID        string
	Created        bool
	Status         Status
	PreviousStatus Status
}

// Changed reports whether the entry is new or moved to another status.
func (r Result) Changed() bool {
	return r.Created || r.PreviousStatus != r.Status
}

type cachedSubscription struct {
	sub     *subscription.Subscription
	expires time.Time
}

// Reconciler applies provider facts to catalog entries. Calls with equal
// input converge on a single entry with equal field values; only
// verified_at moves.
type Reconciler struct {
	writer    Writer
	subs      Subscriptions
	publisher events.Publisher
	clock     core.Clock
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedSubscription
}

func NewReconciler(
	writer Writer,
	subs Subscriptions,
	publisher events.Publisher,
	clock core.Clock,
	logger *slog.Logger,
) *Reconciler {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}

	return &Reconciler{
		writer:    writer,
		subs:      subs,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("component", "reconciler"),
		cache:     make(map[string]cachedSubscription),
	}
}

func (r *Reconciler) subscription(ctx context.Context, id string) (*subscription.Subscription, error) {
	now := r.clock.Now()

	r.mu.Lock()
	cached, ok := r.cache[id]
	r.mu.Unlock()
	if ok && now.Before(cached.expires) {
		return cached.sub, nil
	}

	sub, err := r.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = cachedSubscription{sub: sub, expires: now.Add(subscriptionCacheTTL)}
	r.mu.Unlock()

	return sub, nil
}

func (r *Reconciler) validate(ctx context.Context, in ReconcileInput) error {
	if in.GameID == "" {
		return fmt.Errorf("reconcile: game id required: %w", core.ErrInvalidInput)
	}
	if !in.Status.Valid() {
		return fmt.Errorf("reconcile %q: %w", in.Status, ErrInvalidStatus)
	}
	if !provider.Platform(in.Platform).Valid() {
		return fmt.Errorf("reconcile %q: %w", in.Platform, ErrInvalidPlatform)
	}

	sub, err := r.subscription(ctx, in.SubscriptionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("reconcile: subscription %q: %w", in.SubscriptionID, core.ErrInvalidInput)
		}
		return fmt.Errorf("reconcile: %w", err)
	}
	if !sub.HasTier(in.Tier) {
		return fmt.Errorf("reconcile %s/%s: %w", sub.Slug, in.Tier, ErrInvalidTier)
	}

	return nil
}

// Reconcile upserts the entry keyed by (game, subscription, platform). A
// uniqueness violation from the store is retried once.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (Result, error) {
	if err := r.validate(ctx, in); err != nil {
		metrics.Reconciliations.WithLabelValues("invalid").Inc()
		return Result{}, err
	}

	entry := &Entry{
		ID:             uuid.New().String(),
		GameID:         in.GameID,
		SubscriptionID: in.SubscriptionID,
		Tier:           in.Tier,
		Platform:       in.Platform,
		Status:         in.Status,
		AvailableDate:  in.AvailableDate,
		LeavingDate:    in.LeavingDate,
		VerifiedAt:     r.clock.Now(),
	}
	if in.NativeID != "" {
		entry.NativeID = &in.NativeID
	}

	out, err := r.writer.Upsert(ctx, entry)
	if errors.Is(err, core.ErrDuplicateKey) {
		r.logger.Debug("reconcile conflict, retrying",
			"game_id", in.GameID,
			"subscription_id", in.SubscriptionID,
			"platform", in.Platform,
		)
		entry.ID = uuid.New().String()
		out, err = r.writer.Upsert(ctx, entry)
	}
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("reconcile: %w", err)
	}

	res := Result{
		EntryID:        out.ID,
		Created:        out.Inserted,
		Status:         in.Status,
		PreviousStatus: out.PreviousStatus,
	}

	switch {
	case res.Created:
		metrics.Reconciliations.WithLabelValues("created").Inc()
	case res.Changed():
		metrics.Reconciliations.WithLabelValues("status_changed").Inc()
	default:
		metrics.Reconciliations.WithLabelValues("refreshed").Inc()
	}

	if res.Changed() {
		r.publish(ctx, events.EntryChanged{
			EntryID:        res.EntryID,
			GameID:         in.GameID,
			SubscriptionID: in.SubscriptionID,
			Platform:       in.Platform,
			Tier:           in.Tier,
			Status:         string(res.Status),
			PreviousStatus: string(res.PreviousStatus),
			Created:        res.Created,
			Origin:         events.OriginReconcile,
			At:             entry.VerifiedAt,
		})
	}

	return res, nil
}

func (r *Reconciler) publish(ctx context.Context, e events.EntryChanged) {
	if err := r.publisher.PublishEntryChanged(ctx, e); err != nil {
		r.logger.Warn("publish entry change failed", "entry_id", e.EntryID, "error", err)
	}
}
