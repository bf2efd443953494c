// AngelaMos | 2026
// service.go

package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var (
	ErrEnrichmentDisabled = errors.New("metadata enrichment is not configured")
	ErrSelfMerge          = fmt.Errorf("cannot merge a game into itself: %w", core.ErrInvalidInput)
)

type Service struct {
	repo     Repository
	resolver *Resolver
	enricher Enricher
	logger   *slog.Logger
}

func NewService(repo Repository, resolver *Resolver, enricher Enricher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		enricher: enricher,
		logger:   logger,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

func (s *Service) Get(ctx context.Context, id string) (*Game, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get game %q: %w", id, core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, q string, limit int) ([]Game, error) {
	if strings.TrimSpace(q) == "" {
		return []Game{}, nil
	}
	return s.repo.Search(ctx, q, clampLimit(limit))
}

func (s *Service) RecentlyAdded(ctx context.Context, limit int) ([]Game, error) {
	return s.repo.RecentlyAdded(ctx, clampLimit(limit))
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// ImportByTitle searches the metadata catalog for title and resolves the
// result like any provider record, so an existing game is reused.
func (s *Service) ImportByTitle(ctx context.Context, title string) (*Game, Resolution, error) {
	if s.enricher == nil {
		return nil, Resolution{}, ErrEnrichmentDisabled
	}

	meta, err := s.enricher.Lookup(ctx, title)
	if err != nil {
		return nil, Resolution{}, fmt.Errorf("import %q: %w", title, err)
	}
	if meta == nil {
		return nil, Resolution{}, fmt.Errorf("import %q: %w", title, core.ErrNotFound)
	}

	rec := provider.Record{
		Title:       meta.Title,
		Description: meta.Description,
		CoverURL:    meta.CoverURL,
		ReleaseDate: meta.ReleaseDate,
		Platforms:   metadataPlatforms(meta.Platforms),
	}
	switch {
	case meta.IGDBID != 0:
		rec.IDKind = provider.IDKindIGDB
		rec.NativeID = strconv.FormatInt(meta.IGDBID, 10)
	case meta.RAWGID != 0:
		rec.IDKind = provider.IDKindRAWG
		rec.NativeID = strconv.FormatInt(meta.RAWGID, 10)
	}

	res, err := s.resolver.Resolve(ctx, rec)
	if err != nil {
		return nil, Resolution{}, err
	}

	g, err := s.repo.GetByID(ctx, res.GameID)
	if err != nil {
		return nil, Resolution{}, err
	}

	s.logger.Info("game imported",
		"game_id", g.ID,
		"title", g.Title,
		"matched_by", res.MatchedBy,
	)

	return g, res, nil
}

// metadataPlatforms maps metadata platform families onto canonical tags.
func metadataPlatforms(names []string) []provider.Platform {
	set := provider.NewPlatformSet()
	for _, name := range names {
		switch name {
		case "playstation":
			set.Add(provider.PlatformConsole)
		default:
			if p, ok := provider.ParsePlatform(name); ok {
				set.Add(p)
			}
		}
	}
	return set.Slice()
}

// Merge folds the dropped game into the kept one. It is the manual repair
// for two canonical games later found to be the same title.
func (s *Service) Merge(ctx context.Context, keepID, dropID string) (*MergeResult, error) {
	for _, id := range []string{keepID, dropID} {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("merge: game id %q: %w", id, core.ErrInvalidInput)
		}
	}
	if keepID == dropID {
		return nil, ErrSelfMerge
	}

	result, err := s.repo.Merge(ctx, keepID, dropID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("games merged",
		"kept_id", keepID,
		"dropped_id", dropID,
		"moved", result.Moved,
		"replaced", result.Replaced,
	)

	return result, nil
}
