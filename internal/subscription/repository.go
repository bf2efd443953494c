// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gotitgames/catalog/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Subscription, error)
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetBySlug(ctx context.Context, slug string) (*Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	UpdateTiers(ctx context.Context, id string, tiers Tiers) error

	UpsertHolding(ctx context.Context, holding *UserSubscription) error
	DeleteHolding(ctx context.Context, userID, subscriptionID string) error
	ListHoldings(ctx context.Context, userID string) ([]UserSubscription, error)
	CountHolders(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Subscription, error) {
	query := `
		SELECT id, slug, name, color, tiers, created_at, updated_at
		FROM subscriptions
		ORDER BY name`

	var subs []Subscription
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Subscription, error) {
	query := `
		SELECT id, slug, name, color, tiers, created_at, updated_at
		FROM subscriptions
		WHERE id = $1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) GetBySlug(
	ctx context.Context,
	slug string,
) (*Subscription, error) {
	query := `
		SELECT id, slug, name, color, tiers, created_at, updated_at
		FROM subscriptions
		WHERE slug = $1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription by slug: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by slug: %w", err)
	}

	return &sub, nil
}

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (id, slug, name, color, tiers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		sub.ID,
		sub.Slug,
		sub.Name,
		sub.Color,
		sub.Tiers,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create subscription: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func (r *repository) UpdateTiers(
	ctx context.Context,
	id string,
	tiers Tiers,
) error {
	query := `
		UPDATE subscriptions
		SET tiers = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, tiers)
	if err != nil {
		return fmt.Errorf("update tiers: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tiers: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update tiers: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpsertHolding(
	ctx context.Context,
	holding *UserSubscription,
) error {
	query := `
		INSERT INTO user_subscriptions (id, user_id, subscription_id, tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, subscription_id)
		DO UPDATE SET tier = EXCLUDED.tier, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		holding.ID,
		holding.UserID,
		holding.SubscriptionID,
		holding.Tier,
	).Scan(&holding.ID, &holding.CreatedAt, &holding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}

	return nil
}

func (r *repository) DeleteHolding(
	ctx context.Context,
	userID, subscriptionID string,
) error {
	query := `
		DELETE FROM user_subscriptions
		WHERE user_id = $1 AND subscription_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, subscriptionID)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete holding: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListHoldings(
	ctx context.Context,
	userID string,
) ([]UserSubscription, error) {
	query := `
		SELECT us.id, us.user_id, us.subscription_id, s.slug AS subscription_slug,
		       us.tier, us.created_at, us.updated_at
		FROM user_subscriptions us
		JOIN subscriptions s ON s.id = us.subscription_id
		WHERE us.user_id = $1
		ORDER BY s.name`

	var holdings []UserSubscription
	if err := r.db.SelectContext(ctx, &holdings, query, userID); err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}

	return holdings, nil
}

func (r *repository) CountHolders(ctx context.Context) (int, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM user_subscriptions`

	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count holders: %w", err)
	}

	return count, nil
}
