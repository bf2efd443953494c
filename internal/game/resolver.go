// AngelaMos | 2026
// resolver.go

package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/metrics"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	DefaultSimilarityThreshold = 0.92
	DefaultCandidateLimit      = 10
)

type MatchKind string

const (
	MatchNativeID MatchKind = "native_id"
	MatchTitle    MatchKind = "title"
	MatchSimilar  MatchKind = "similar_title"
	MatchIGDB     MatchKind = "igdb"
	MatchRAWG     MatchKind = "rawg"
	MatchCreated  MatchKind = "created"
)

type Resolution struct {
	GameID    string
	Created   bool
	MatchedBy MatchKind
}

// Enricher looks up external metadata for a title. It returns nil, nil when
// the title is unknown.
type Enricher interface {
	Lookup(ctx context.Context, title string) (*Metadata, error)
}

// Chain consults each enricher in order and returns the first hit. A
// failing enricher is skipped; its error is returned only when no later
// enricher finds the title. Nil entries are ignored and an empty chain
// yields nil.
func Chain(enrichers ...Enricher) Enricher {
	var live chain
	for _, e := range enrichers {
		if e != nil {
			live = append(live, e)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return live
}

type chain []Enricher

func (c chain) Lookup(ctx context.Context, title string) (*Metadata, error) {
	var errs []error
	for _, e := range c {
		meta, err := e.Lookup(ctx, title)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if meta != nil {
			return meta, nil
		}
	}
	return nil, errors.Join(errs...)
}

// Resolver maps provider records onto canonical games, creating a game only
// when no existing one matches.
type Resolver struct {
	store     Store
	enricher  Enricher
	threshold float64
	limit     int
	logger    *slog.Logger
}

// NewResolver builds a resolver. enricher may be nil.
func NewResolver(store Store, enricher Enricher, cfg config.ResolverConfig, logger *slog.Logger) *Resolver {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	limit := cfg.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	return &Resolver{
		store:     store,
		enricher:  enricher,
		threshold: threshold,
		limit:     limit,
		logger:    logger.With("component", "resolver"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, rec provider.Record) (Resolution, error) {
	title := strings.TrimSpace(rec.Title)
	normalized := NormalizeTitle(title)
	if normalized == "" {
		return Resolution{}, fmt.Errorf("resolve %q: empty title: %w", rec.Title, core.ErrInvalidInput)
	}

	if rec.NativeID != "" && rec.IDKind.Valid() {
		g, err := r.store.GetByExternalID(ctx, rec.IDKind, rec.NativeID)
		switch {
		case err == nil:
			return r.matched(ctx, g, rec, nil, MatchNativeID)
		case !errors.Is(err, core.ErrNotFound):
			return Resolution{}, fmt.Errorf("resolve %q: %w", title, err)
		}
	}

	g, err := r.store.GetByNormalizedTitle(ctx, normalized)
	switch {
	case err == nil:
		return r.matched(ctx, g, rec, nil, MatchTitle)
	case !errors.Is(err, core.ErrNotFound):
		return Resolution{}, fmt.Errorf("resolve %q: %w", title, err)
	}

	candidates, err := r.store.FindSimilar(ctx, normalized, r.limit)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %q: %w", title, err)
	}
	for i := range candidates {
		if TitleSimilarity(normalized, candidates[i].NormalizedTitle) >= r.threshold {
			return r.matched(ctx, &candidates[i], rec, nil, MatchSimilar)
		}
	}

	meta := r.lookup(ctx, title)
	if meta != nil {
		for _, ref := range metadataRefs(meta) {
			g, err := r.store.GetByExternalID(ctx, ref.kind, strconv.FormatInt(ref.id, 10))
			switch {
			case err == nil:
				return r.matched(ctx, g, rec, meta, ref.match)
			case !errors.Is(err, core.ErrNotFound):
				return Resolution{}, fmt.Errorf("resolve %q: %w", title, err)
			}
		}
	}

	return r.create(ctx, title, normalized, rec, meta)
}

type metadataRef struct {
	kind  provider.IDKind
	id    int64
	match MatchKind
}

func metadataRefs(meta *Metadata) []metadataRef {
	var refs []metadataRef
	if meta.IGDBID != 0 {
		refs = append(refs, metadataRef{provider.IDKindIGDB, meta.IGDBID, MatchIGDB})
	}
	if meta.RAWGID != 0 {
		refs = append(refs, metadataRef{provider.IDKindRAWG, meta.RAWGID, MatchRAWG})
	}
	return refs
}

func (r *Resolver) lookup(ctx context.Context, title string) *Metadata {
	if r.enricher == nil {
		return nil
	}
	meta, err := r.enricher.Lookup(ctx, title)
	if err != nil {
		r.logger.Warn("metadata lookup failed", "title", title, "error", err)
		return nil
	}
	return meta
}

func (r *Resolver) create(
	ctx context.Context,
	title, normalized string,
	rec provider.Record,
	meta *Metadata,
) (Resolution, error) {
	g := &Game{
		ID:              uuid.New().String(),
		Title:           title,
		NormalizedTitle: normalized,
		Slug:            nonEmpty(Slugify(title)),
		CoverURL:        nonEmpty(rec.CoverURL),
		Description:     nonEmpty(rec.Description),
		ReleaseDate:     rec.ReleaseDate,
		Platforms:       PlatformsFrom(rec.Platforms),
	}
	setExternalID(g, rec.IDKind, rec.NativeID)

	if meta != nil {
		if meta.IGDBID != 0 {
			g.IGDBID = ptr(meta.IGDBID)
		}
		if meta.RAWGID != 0 {
			g.RAWGID = ptr(meta.RAWGID)
		}
		if meta.Slug != "" {
			g.Slug = ptr(meta.Slug)
		}
		if g.CoverURL == nil {
			g.CoverURL = nonEmpty(meta.CoverURL)
		}
		if g.Description == nil {
			g.Description = nonEmpty(meta.Description)
		}
		if g.ReleaseDate == nil {
			g.ReleaseDate = meta.ReleaseDate
		}
	}

	err := r.store.Create(ctx, g)
	if err == nil {
		metrics.Resolutions.WithLabelValues(string(MatchCreated)).Inc()
		r.logger.Debug("game created", "game_id", g.ID, "title", title)
		core.AddSpanEvent(ctx, "game.created",
			attribute.String("game_id", g.ID),
			attribute.String("title", title),
		)
		return Resolution{GameID: g.ID, Created: true, MatchedBy: MatchCreated}, nil
	}
	if !errors.Is(err, core.ErrDuplicateKey) {
		return Resolution{}, fmt.Errorf("resolve %q: %w", title, err)
	}

	// Lost a race with a concurrent create of the same title or id.
	existing, rerr := r.store.GetByNormalizedTitle(ctx, normalized)
	if rerr != nil && rec.NativeID != "" && rec.IDKind.Valid() {
		existing, rerr = r.store.GetByExternalID(ctx, rec.IDKind, rec.NativeID)
	}
	if rerr != nil {
		return Resolution{}, fmt.Errorf("resolve %q after duplicate: %w", title, rerr)
	}

	return r.matched(ctx, existing, rec, meta, MatchTitle)
}

// matched backfills empty fields of g from rec and meta. Populated fields
// are never overwritten.
func (r *Resolver) matched(
	ctx context.Context,
	g *Game,
	rec provider.Record,
	meta *Metadata,
	by MatchKind,
) (Resolution, error) {
	metrics.Resolutions.WithLabelValues(string(by)).Inc()

	f := missingFields(g, rec, meta)
	if !f.Empty() {
		err := r.store.Backfill(ctx, g.ID, f)
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			r.logger.Warn("backfill skipped, identifier owned by another game",
				"game_id", g.ID,
				"id_kind", rec.IDKind,
				"native_id", rec.NativeID,
			)
		case err != nil:
			return Resolution{}, fmt.Errorf("resolve %q: %w", rec.Title, err)
		}
	}

	return Resolution{GameID: g.ID, MatchedBy: by}, nil
}

func missingFields(g *Game, rec provider.Record, meta *Metadata) Fields {
	var f Fields

	if rec.NativeID != "" && g.ExternalID(rec.IDKind) == "" {
		ids := &Game{}
		setExternalID(ids, rec.IDKind, rec.NativeID)
		f.IGDBID = ids.IGDBID
		f.RAWGID = ids.RAWGID
		f.MSStoreID = ids.MSStoreID
		f.PSNID = ids.PSNID
		f.UbisoftID = ids.UbisoftID
	}

	if g.CoverURL == nil || *g.CoverURL == "" {
		f.CoverURL = nonEmpty(rec.CoverURL)
	}
	if g.Description == nil || *g.Description == "" {
		f.Description = nonEmpty(rec.Description)
	}
	if g.ReleaseDate == nil {
		f.ReleaseDate = rec.ReleaseDate
	}
	if len(g.Platforms) == 0 && len(rec.Platforms) > 0 {
		f.Platforms = PlatformsFrom(rec.Platforms)
	}

	if meta != nil {
		if g.IGDBID == nil && f.IGDBID == nil && meta.IGDBID != 0 {
			f.IGDBID = ptr(meta.IGDBID)
		}
		if g.RAWGID == nil && f.RAWGID == nil && meta.RAWGID != 0 {
			f.RAWGID = ptr(meta.RAWGID)
		}
		if f.CoverURL == nil && (g.CoverURL == nil || *g.CoverURL == "") {
			f.CoverURL = nonEmpty(meta.CoverURL)
		}
		if f.Description == nil && (g.Description == nil || *g.Description == "") {
			f.Description = nonEmpty(meta.Description)
		}
		if f.ReleaseDate == nil && g.ReleaseDate == nil {
			f.ReleaseDate = meta.ReleaseDate
		}
	}

	return f
}

func setExternalID(g *Game, kind provider.IDKind, id string) {
	if id == "" {
		return
	}
	switch kind {
	case provider.IDKindIGDB:
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			g.IGDBID = &n
		}
	case provider.IDKindRAWG:
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			g.RAWGID = &n
		}
	case provider.IDKindMSStore:
		g.MSStoreID = ptr(id)
	case provider.IDKindPSN:
		g.PSNID = ptr(id)
	case provider.IDKindUbisoft:
		g.UbisoftID = ptr(id)
	}
}
