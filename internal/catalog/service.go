// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
)

var ErrOverrideStatus = fmt.Errorf("override status must be leaving_soon or coming_soon: %w", core.ErrInvalidInput)

// OverrideInput selects entries by partial game title, optionally limited
// to one subscription.
type OverrideInput struct {
	TitleContains    string
	Status           Status
	Date             *time.Time
	SubscriptionSlug string
}

type UpsertInput struct {
	GameID           string
	SubscriptionSlug string
	Platform         string
	Tier             string
	Status           Status
	AvailableDate    *time.Time
	LeavingDate      *time.Time
	NativeID         string
}

// Service holds the administrative catalog writes. None of them run as
// part of a sync.
type Service struct {
	repo       Repository
	reconciler *Reconciler
	subs       Subscriptions
	publisher  events.Publisher
	clock      core.Clock
	logger     *slog.Logger
}

func NewService(
	repo Repository,
	reconciler *Reconciler,
	subs Subscriptions,
	publisher events.Publisher,
	clock core.Clock,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}

	return &Service{
		repo:       repo,
		reconciler: reconciler,
		subs:       subs,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
	}
}

func (s *Service) subscriptionID(ctx context.Context, slug string) (*string, error) {
	if slug == "" {
		return nil, nil
	}

	sub, err := s.subs.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("subscription %q: %w", slug, core.ErrNotFound)
		}
		return nil, err
	}

	return &sub.ID, nil
}

// Upsert writes one entry through the reconciler.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (Result, error) {
	subID, err := s.subscriptionID(ctx, in.SubscriptionSlug)
	if err != nil {
		return Result{}, err
	}
	if subID == nil {
		return Result{}, fmt.Errorf("upsert: subscription required: %w", core.ErrInvalidInput)
	}
	if _, err := uuid.Parse(in.GameID); err != nil {
		return Result{}, fmt.Errorf("upsert: game id %q: %w", in.GameID, core.ErrInvalidInput)
	}

	return s.reconciler.Reconcile(ctx, ReconcileInput{
		GameID:         in.GameID,
		SubscriptionID: *subID,
		Platform:       in.Platform,
		Tier:           in.Tier,
		Status:         in.Status,
		AvailableDate:  in.AvailableDate,
		LeavingDate:    in.LeavingDate,
		NativeID:       in.NativeID,
	})
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("remove entry %q: %w", id, core.ErrNotFound)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("catalog entry removed", "entry_id", id)
	return nil
}

// SetStatusByTitle bulk-moves matching entries to leaving_soon or
// coming_soon and returns how many were affected.
func (s *Service) SetStatusByTitle(ctx context.Context, in OverrideInput) (int, error) {
	title := strings.TrimSpace(in.TitleContains)
	if title == "" {
		return 0, fmt.Errorf("override: title required: %w", core.ErrInvalidInput)
	}
	if !in.Status.Transitional() {
		return 0, ErrOverrideStatus
	}

	subID, err := s.subscriptionID(ctx, in.SubscriptionSlug)
	if err != nil {
		return 0, err
	}

	entries, err := s.repo.SetStatusByTitle(ctx, title, in.Status, in.Date, subID)
	if err != nil {
		return 0, err
	}

	s.announce(ctx, entries)
	s.logger.Info("catalog status override",
		"title", title,
		"status", in.Status,
		"subscription", in.SubscriptionSlug,
		"affected", len(entries),
	)

	return len(entries), nil
}

// ResetTransitional returns every coming_soon and leaving_soon entry to
// available and clears their dates. An empty slug resets all subscriptions.
func (s *Service) ResetTransitional(ctx context.Context, slug string) (int, error) {
	subID, err := s.subscriptionID(ctx, slug)
	if err != nil {
		return 0, err
	}

	entries, err := s.repo.ResetTransitional(ctx, subID)
	if err != nil {
		return 0, err
	}

	s.announce(ctx, entries)
	s.logger.Info("catalog transitional statuses reset",
		"subscription", slug,
		"affected", len(entries),
	)

	return len(entries), nil
}

func (s *Service) announce(ctx context.Context, entries []Entry) {
	now := s.clock.Now()
	for _, e := range entries {
		err := s.publisher.PublishEntryChanged(ctx, events.EntryChanged{
			EntryID:        e.ID,
			GameID:         e.GameID,
			SubscriptionID: e.SubscriptionID,
			Platform:       e.Platform,
			Tier:           e.Tier,
			Status:         string(e.Status),
			Origin:         events.OriginOverride,
			At:             now,
		})
		if err != nil {
			s.logger.Warn("publish entry change failed", "entry_id", e.ID, "error", err)
		}
	}
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
