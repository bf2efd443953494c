// AngelaMos | 2026
// repository.go

package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/provider"
)

const gameColumns = `
	id, title, normalized_title, slug, igdb_id, rawg_id, ms_store_id,
	psn_id, ubisoft_id, cover_url, release_date, platforms, description,
	created_at, updated_at`

// Store is the subset of game persistence the resolver needs.
type Store interface {
	GetByExternalID(ctx context.Context, kind provider.IDKind, id string) (*Game, error)
	GetByNormalizedTitle(ctx context.Context, normalized string) (*Game, error)
	FindSimilar(ctx context.Context, normalized string, limit int) ([]Game, error)
	Create(ctx context.Context, g *Game) error
	Backfill(ctx context.Context, id string, f Fields) error
}

type Repository interface {
	Store
	GetByID(ctx context.Context, id string) (*Game, error)
	Search(ctx context.Context, query string, limit int) ([]Game, error)
	RecentlyAdded(ctx context.Context, limit int) ([]Game, error)
	Count(ctx context.Context) (int, error)
	Merge(ctx context.Context, keepID, dropID string) (*MergeResult, error)
}

type MergeResult struct {
	KeptID    string `json:"kept_id"`
	DroppedID string `json:"dropped_id"`
	Moved     int64  `json:"moved"`
	Replaced  int64  `json:"replaced"`
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func externalColumn(kind provider.IDKind) (string, error) {
	switch kind {
	case provider.IDKindIGDB:
		return "igdb_id", nil
	case provider.IDKindRAWG:
		return "rawg_id", nil
	case provider.IDKindMSStore:
		return "ms_store_id", nil
	case provider.IDKindPSN:
		return "psn_id", nil
	case provider.IDKindUbisoft:
		return "ubisoft_id", nil
	}
	return "", fmt.Errorf("id kind %q: %w", kind, core.ErrInvalidInput)
}

func getOne(ctx context.Context, db core.DBTX, op, query string, args ...any) (*Game, error) {
	var g Game
	err := db.GetContext(ctx, &g, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &g, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Game, error) {
	query := `SELECT` + gameColumns + ` FROM games WHERE id = $1`
	return getOne(ctx, r.db, "get game", query, id)
}

func (r *repository) GetByExternalID(
	ctx context.Context,
	kind provider.IDKind,
	id string,
) (*Game, error) {
	column, err := externalColumn(kind)
	if err != nil {
		return nil, err
	}

	var arg any = id
	if kind == provider.IDKindIGDB || kind == provider.IDKindRAWG {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("get game by %s id %q: %w", kind, id, core.ErrNotFound)
		}
		arg = n
	}

	//nolint:gosec // column comes from a fixed whitelist
	query := `SELECT` + gameColumns + ` FROM games WHERE ` + column + ` = $1`
	return getOne(ctx, r.db, "get game by "+column, query, arg)
}

func (r *repository) GetByNormalizedTitle(
	ctx context.Context,
	normalized string,
) (*Game, error) {
	query := `SELECT` + gameColumns + ` FROM games WHERE normalized_title = $1`
	return getOne(ctx, r.db, "get game by title", query, normalized)
}

// FindSimilar returns trigram candidates ordered by store similarity.
func (r *repository) FindSimilar(
	ctx context.Context,
	normalized string,
	limit int,
) ([]Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE normalized_title % $1
		ORDER BY similarity(normalized_title, $1) DESC
		LIMIT $2`

	var games []Game
	if err := r.db.SelectContext(ctx, &games, query, normalized, limit); err != nil {
		return nil, fmt.Errorf("find similar games: %w", err)
	}

	return games, nil
}

func (r *repository) Create(ctx context.Context, g *Game) error {
	query := `
		INSERT INTO games (
			id, title, normalized_title, slug, igdb_id, rawg_id, ms_store_id,
			psn_id, ubisoft_id, cover_url, release_date, platforms, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		g.ID,
		g.Title,
		g.NormalizedTitle,
		g.Slug,
		g.IGDBID,
		g.RAWGID,
		g.MSStoreID,
		g.PSNID,
		g.UbisoftID,
		g.CoverURL,
		g.ReleaseDate,
		g.Platforms,
		g.Description,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create game: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create game: %w", err)
	}

	return nil
}

func (r *repository) Backfill(ctx context.Context, id string, f Fields) error {
	return backfill(ctx, r.db, id, f)
}

// backfill writes each field only where the stored value is empty.
func backfill(ctx context.Context, db core.DBTX, id string, f Fields) error {
	query := `
		UPDATE games SET
			slug         = COALESCE(NULLIF(slug, ''), $2),
			igdb_id      = COALESCE(igdb_id, $3),
			rawg_id      = COALESCE(rawg_id, $4),
			ms_store_id  = COALESCE(ms_store_id, $5),
			psn_id       = COALESCE(psn_id, $6),
			ubisoft_id   = COALESCE(ubisoft_id, $7),
			cover_url    = COALESCE(NULLIF(cover_url, ''), $8),
			description  = COALESCE(NULLIF(description, ''), $9),
			release_date = COALESCE(release_date, $10),
			platforms    = CASE
				WHEN platforms = '[]'::jsonb AND $11::jsonb <> '[]'::jsonb THEN $11::jsonb
				ELSE platforms
			END,
			updated_at   = NOW()
		WHERE id = $1`

	result, err := db.ExecContext(ctx, query,
		id,
		f.Slug,
		f.IGDBID,
		f.RAWGID,
		f.MSStoreID,
		f.PSNID,
		f.UbisoftID,
		f.CoverURL,
		f.Description,
		f.ReleaseDate,
		f.Platforms,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("backfill game: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("backfill game: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("backfill game rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("backfill game: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Search(
	ctx context.Context,
	q string,
	limit int,
) ([]Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE normalized_title ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY similarity(normalized_title, $2) DESC, title
		LIMIT $3`

	normalized := NormalizeTitle(q)

	var games []Game
	if err := r.db.SelectContext(ctx, &games, query, core.EscapeLike(normalized), normalized, limit); err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}

	return games, nil
}

type listedGame struct {
	Game
	FirstListed sql.NullTime `db:"first_listed"`
}

// RecentlyAdded orders games with an available entry by when they were
// first listed, newest first.
func (r *repository) RecentlyAdded(ctx context.Context, limit int) ([]Game, error) {
	query := `
		SELECT
			g.id, g.title, g.normalized_title, g.slug, g.igdb_id, g.rawg_id,
			g.ms_store_id, g.psn_id, g.ubisoft_id, g.cover_url, g.release_date, g.platforms,
			g.description, g.created_at, g.updated_at,
			MIN(ce.created_at) AS first_listed
		FROM games g
		JOIN catalog_entries ce ON ce.game_id = g.id
		WHERE ce.status = 'available'
		GROUP BY g.id
		ORDER BY first_listed DESC
		LIMIT $1`

	var rows []listedGame
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("recently added games: %w", err)
	}

	games := make([]Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, row.Game)
	}

	return games, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM games`); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return count, nil
}

// Merge folds dropID into keepID in one transaction. Catalog entries move
// to the kept game; where both games have an entry for the same
// subscription and platform, the more recently verified one survives.
// Identifiers and descriptive fields the kept game lacks are copied over
// before the dropped game is deleted.
func (r *repository) Merge(
	ctx context.Context,
	keepID, dropID string,
) (*MergeResult, error) {
	result := &MergeResult{KeptID: keepID, DroppedID: dropID}

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		lock := `SELECT` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`

		if _, err := getOne(ctx, tx, "lock kept game", lock, keepID); err != nil {
			return err
		}
		dropped, err := getOne(ctx, tx, "lock dropped game", lock, dropID)
		if err != nil {
			return err
		}

		staleKept := `
			DELETE FROM catalog_entries k
			USING catalog_entries d
			WHERE k.game_id = $1 AND d.game_id = $2
				AND k.subscription_id = d.subscription_id
				AND k.platform = d.platform
				AND k.verified_at < d.verified_at`
		res, err := tx.ExecContext(ctx, staleKept, keepID, dropID)
		if err != nil {
			return fmt.Errorf("drop superseded entries: %w", err)
		}
		replaced, _ := res.RowsAffected() //nolint:errcheck // pgx always reports rows

		staleDropped := `
			DELETE FROM catalog_entries d
			USING catalog_entries k
			WHERE d.game_id = $2 AND k.game_id = $1
				AND k.subscription_id = d.subscription_id
				AND k.platform = d.platform`
		if _, err := tx.ExecContext(ctx, staleDropped, keepID, dropID); err != nil {
			return fmt.Errorf("drop colliding entries: %w", err)
		}

		move := `UPDATE catalog_entries SET game_id = $1, updated_at = NOW() WHERE game_id = $2`
		res, err = tx.ExecContext(ctx, move, keepID, dropID)
		if err != nil {
			return fmt.Errorf("move entries: %w", err)
		}
		moved, _ := res.RowsAffected() //nolint:errcheck // pgx always reports rows

		if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, dropID); err != nil {
			return fmt.Errorf("delete dropped game: %w", err)
		}

		if err := backfill(ctx, tx, keepID, fieldsOf(dropped)); err != nil {
			return err
		}

		result.Moved = moved
		result.Replaced = replaced
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge games: %w", err)
	}

	return result, nil
}

func fieldsOf(g *Game) Fields {
	return Fields{
		Slug:        g.Slug,
		IGDBID:      g.IGDBID,
		RAWGID:      g.RAWGID,
		MSStoreID:   g.MSStoreID,
		PSNID:       g.PSNID,
		UbisoftID:   g.UbisoftID,
		CoverURL:    g.CoverURL,
		Description: g.Description,
		ReleaseDate: g.ReleaseDate,
		Platforms:   g.Platforms,
	}
}
