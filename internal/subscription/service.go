// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/gotitgames/catalog/internal/core"
)

var (
	ErrUnknownTier  = fmt.Errorf("unknown tier: %w", core.ErrInvalidInput)
	ErrInvalidTiers = fmt.Errorf("invalid tier list: %w", core.ErrInvalidInput)
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Seed inserts any seed subscription that does not exist yet and returns
// how many were inserted. Existing rows are left untouched.
func (s *Service) Seed(ctx context.Context) (int, error) {
	inserted := 0

	for _, seed := range Seeds() {
		_, err := s.repo.GetBySlug(ctx, seed.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return inserted, fmt.Errorf("seed %s: %w", seed.Slug, err)
		}

		sub := seed
		sub.ID = uuid.New().String()
		if err := s.repo.Create(ctx, &sub); err != nil {
			if errors.Is(err, core.ErrDuplicateKey) {
				continue
			}
			return inserted, fmt.Errorf("seed %s: %w", seed.Slug, err)
		}

		inserted++
		s.logger.Info("subscription seeded", "slug", sub.Slug)
	}

	return inserted, nil
}

func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetBySlug(
	ctx context.Context,
	slug string,
) (*Subscription, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateTiers replaces the tier list of a subscription. Entries that
// reference a removed tier slug are left alone; they simply stop granting
// access until the slug is reintroduced.
func (s *Service) UpdateTiers(
	ctx context.Context,
	slug string,
	tiers Tiers,
) (*Subscription, error) {
	normalized, err := ValidateTiers(tiers)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTiers(ctx, sub.ID, normalized); err != nil {
		return nil, err
	}

	sub.Tiers = normalized
	s.logger.Info("subscription tiers updated",
		"slug", slug,
		"tiers", len(normalized),
	)
	return sub, nil
}

// ValidateTiers checks the tier list is non-empty with unique slugs and
// strictly increasing ranks, and returns it sorted by rank.
func ValidateTiers(tiers Tiers) (Tiers, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: at least one tier is required", ErrInvalidTiers)
	}

	sorted := make(Tiers, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})

	seen := make(map[string]struct{}, len(sorted))
	for i, tier := range sorted {
		if tier.Slug == "" {
			return nil, fmt.Errorf("%w: tier slug is required", ErrInvalidTiers)
		}
		if _, dup := seen[tier.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrInvalidTiers, tier.Slug)
		}
		seen[tier.Slug] = struct{}{}

		if i > 0 && sorted[i-1].Rank == tier.Rank {
			return nil, fmt.Errorf(
				"%w: tiers %q and %q share rank %d",
				ErrInvalidTiers, sorted[i-1].Slug, tier.Slug, tier.Rank,
			)
		}
	}

	return sorted, nil
}

func (s *Service) SetHolding(
	ctx context.Context,
	userID, slug, tierSlug string,
) (*UserSubscription, error) {
	sub, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if !sub.HasTier(tierSlug) {
		return nil, fmt.Errorf("%w: %q is not a %s tier", ErrUnknownTier, tierSlug, slug)
	}

	holding := &UserSubscription{
		ID:               uuid.New().String(),
		UserID:           userID,
		SubscriptionID:   sub.ID,
		SubscriptionSlug: sub.Slug,
		Tier:             tierSlug,
	}

	if err := s.repo.UpsertHolding(ctx, holding); err != nil {
		return nil, err
	}

	return holding, nil
}

func (s *Service) RemoveHolding(ctx context.Context, userID, slug string) error {
	sub, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.repo.DeleteHolding(ctx, userID, sub.ID)
}

func (s *Service) ListHoldings(
	ctx context.Context,
	userID string,
) ([]UserSubscription, error) {
	return s.repo.ListHoldings(ctx, userID)
}

func (s *Service) CountHolders(ctx context.Context) (int, error) {
	return s.repo.CountHolders(ctx)
}
