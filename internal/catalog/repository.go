// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gotitgames/catalog/internal/core"
)

const entryColumns = `
	id, game_id, subscription_id, tier, platform, status, available_date,
	leaving_date, native_id, verified_at, created_at, updated_at`

type Repository interface {
	Upsert(ctx context.Context, e *Entry) (UpsertOutcome, error)
	GetByID(ctx context.Context, id string) (*Entry, error)
	Delete(ctx context.Context, id string) error

	SetStatusByTitle(
		ctx context.Context,
		titleContains string,
		status Status,
		date *time.Time,
		subscriptionID *string,
	) ([]Entry, error)
	ResetTransitional(ctx context.Context, subscriptionID *string) ([]Entry, error)

	ListExpiring(ctx context.Context, cutoff time.Time) ([]Entry, error)
	MarkLeavingSoon(ctx context.Context, id string, cutoff time.Time) (bool, error)

	ListByGame(ctx context.Context, gameID string) ([]Entry, error)
	ListByStatus(ctx context.Context, q ListingQuery) ([]Listing, error)
	AvailableGameTiers(ctx context.Context, subscriptionID string) ([]GameTier, error)

	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Upsert writes e against its natural key. Every mutable field is replaced
// except native_id, which is only replaced by a non-empty value.
func (r *repository) Upsert(ctx context.Context, e *Entry) (UpsertOutcome, error) {
	query := `
		WITH prev AS (
			SELECT status
			FROM catalog_entries
			WHERE game_id = $2 AND subscription_id = $3 AND platform = $5
		)
		INSERT INTO catalog_entries (
			id, game_id, subscription_id, tier, platform, status,
			available_date, leaving_date, native_id, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT catalog_entries_key DO UPDATE SET
			tier           = EXCLUDED.tier,
			status         = EXCLUDED.status,
			available_date = EXCLUDED.available_date,
			leaving_date   = EXCLUDED.leaving_date,
			native_id      = COALESCE(EXCLUDED.native_id, catalog_entries.native_id),
			verified_at    = EXCLUDED.verified_at,
			updated_at     = NOW()
		RETURNING
			id,
			(xmax = 0) AS inserted,
			COALESCE((SELECT status FROM prev), '') AS previous_status`

	var out UpsertOutcome
	err := r.db.QueryRowxContext(ctx, query,
		e.ID,
		e.GameID,
		e.SubscriptionID,
		e.Tier,
		e.Platform,
		string(e.Status),
		e.AvailableDate,
		e.LeavingDate,
		e.NativeID,
		e.VerifiedAt,
	).StructScan(&out)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return UpsertOutcome{}, fmt.Errorf("upsert catalog entry: %w", core.ErrDuplicateKey)
		}
		return UpsertOutcome{}, fmt.Errorf("upsert catalog entry: %w", err)
	}

	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT` + entryColumns + ` FROM catalog_entries WHERE id = $1`

	var e Entry
	err := r.db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get catalog entry: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}

	return &e, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete catalog entry rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete catalog entry: %w", core.ErrNotFound)
	}

	return nil
}

// SetStatusByTitle moves every entry whose game title contains
// titleContains (case-insensitive) to status. date becomes the leaving or
// available date matching status; a nil date keeps the stored one.
func (r *repository) SetStatusByTitle(
	ctx context.Context,
	titleContains string,
	status Status,
	date *time.Time,
	subscriptionID *string,
) ([]Entry, error) {
	query := `
		UPDATE catalog_entries ce SET
			status = $1,
			leaving_date = CASE
				WHEN $1 = 'leaving_soon' THEN COALESCE($2, ce.leaving_date)
				ELSE ce.leaving_date
			END,
			available_date = CASE
				WHEN $1 = 'coming_soon' THEN COALESCE($2, ce.available_date)
				ELSE ce.available_date
			END,
			updated_at = NOW()
		FROM games g
		WHERE g.id = ce.game_id
			AND g.title ILIKE '%' || $3::text || '%' ESCAPE '\'
			AND ($4::uuid IS NULL OR ce.subscription_id = $4::uuid)
		RETURNING
			ce.id, ce.game_id, ce.subscription_id, ce.tier, ce.platform,
			ce.status, ce.available_date, ce.leaving_date, ce.native_id,
			ce.verified_at, ce.created_at, ce.updated_at`

	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, query,
		string(status),
		date,
		core.EscapeLike(titleContains),
		subscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("set status by title: %w", err)
	}

	return entries, nil
}

func (r *repository) ResetTransitional(
	ctx context.Context,
	subscriptionID *string,
) ([]Entry, error) {
	query := `
		UPDATE catalog_entries SET
			status = 'available',
			available_date = NULL,
			leaving_date = NULL,
			updated_at = NOW()
		WHERE status IN ('coming_soon', 'leaving_soon')
			AND ($1::uuid IS NULL OR subscription_id = $1::uuid)
		RETURNING` + entryColumns

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("reset transitional entries: %w", err)
	}

	return entries, nil
}

func (r *repository) ListExpiring(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM catalog_entries
		WHERE status <> 'leaving_soon'
			AND leaving_date IS NOT NULL
			AND leaving_date < $1
		ORDER BY leaving_date`

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, cutoff); err != nil {
		return nil, fmt.Errorf("list expiring entries: %w", err)
	}

	return entries, nil
}

// MarkLeavingSoon flags one entry, re-checking the scan condition so a
// concurrent write that cleared the leaving date is not overridden.
func (r *repository) MarkLeavingSoon(
	ctx context.Context,
	id string,
	cutoff time.Time,
) (bool, error) {
	query := `
		UPDATE catalog_entries SET
			status = 'leaving_soon',
			updated_at = NOW()
		WHERE id = $1
			AND status <> 'leaving_soon'
			AND leaving_date IS NOT NULL
			AND leaving_date < $2`

	result, err := r.db.ExecContext(ctx, query, id, cutoff)
	if err != nil {
		return false, fmt.Errorf("mark leaving soon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark leaving soon rows affected: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) ListByGame(ctx context.Context, gameID string) ([]Entry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM catalog_entries
		WHERE game_id = $1
		ORDER BY subscription_id, platform`

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, gameID); err != nil {
		return nil, fmt.Errorf("list entries by game: %w", err)
	}

	return entries, nil
}

// ListByStatus pages by (game, subscription) group so that every
// platform row of a selected group is returned together.
func (r *repository) ListByStatus(ctx context.Context, q ListingQuery) ([]Listing, error) {
	query := `
		WITH picked AS (
			SELECT
				ce.game_id,
				ce.subscription_id,
				MIN(CASE WHEN $1 = 'leaving_soon' THEN ce.leaving_date ELSE ce.available_date END) AS sort_date,
				MIN(g.title) AS sort_title
			FROM catalog_entries ce
			JOIN games g ON g.id = ce.game_id
			WHERE ce.status = $1
				AND (cardinality($2::text[]) = 0 OR ce.subscription_id::text = ANY($2::text[]))
			GROUP BY ce.game_id, ce.subscription_id
			ORDER BY sort_date ASC NULLS LAST, sort_title
			LIMIT NULLIF($3::int, 0)
		)
		SELECT
			ce.id, ce.game_id, ce.subscription_id, ce.tier, ce.platform,
			ce.status, ce.available_date, ce.leaving_date, ce.native_id,
			ce.verified_at, ce.created_at, ce.updated_at,
			g.title AS game_title,
			g.cover_url AS game_cover_url,
			s.slug AS subscription_slug,
			s.name AS subscription_name
		FROM picked p
		JOIN catalog_entries ce
			ON ce.game_id = p.game_id AND ce.subscription_id = p.subscription_id
		JOIN games g ON g.id = ce.game_id
		JOIN subscriptions s ON s.id = ce.subscription_id
		WHERE ce.status = $1
		ORDER BY p.sort_date ASC NULLS LAST, p.sort_title, ce.platform`

	subs := q.SubscriptionIDs
	if subs == nil {
		subs = []string{}
	}

	var listings []Listing
	if err := r.db.SelectContext(ctx, &listings, query, string(q.Status), subs, q.Groups); err != nil {
		return nil, fmt.Errorf("list entries by status: %w", err)
	}

	return listings, nil
}

func (r *repository) AvailableGameTiers(
	ctx context.Context,
	subscriptionID string,
) ([]GameTier, error) {
	query := `
		SELECT DISTINCT game_id, tier
		FROM catalog_entries
		WHERE subscription_id = $1 AND status = 'available'`

	var tiers []GameTier
	if err := r.db.SelectContext(ctx, &tiers, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("available game tiers: %w", err)
	}

	return tiers, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM catalog_entries`); err != nil {
		return 0, fmt.Errorf("count catalog entries: %w", err)
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM catalog_entries GROUP BY status`

	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count catalog entries by status: %w", err)
	}

	counts := map[Status]int{
		StatusAvailable:   0,
		StatusComingSoon:  0,
		StatusLeavingSoon: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
