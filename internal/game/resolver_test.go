// AngelaMos | 2026
// resolver_test.go

package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/provider"
)

type memStore struct {
	mu     sync.Mutex
	games  map[string]*Game
	order  []string
	failOn string

	// raceWith is inserted right before the next Create, simulating a
	// concurrent writer winning the unique title.
	raceWith *Game
}

func newMemStore() *memStore {
	return &memStore{games: make(map[string]*Game)}
}

func (m *memStore) insert(g *Game) {
	cp := *g
	m.games[g.ID] = &cp
	m.order = append(m.order, g.ID)
}

func (m *memStore) GetByExternalID(_ context.Context, kind provider.IDKind, id string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "external" {
		return nil, errors.New("store down")
	}
	for _, gid := range m.order {
		g := m.games[gid]
		if g.ExternalID(kind) == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get: %w", core.ErrNotFound)
}

func (m *memStore) GetByNormalizedTitle(_ context.Context, normalized string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, gid := range m.order {
		g := m.games[gid]
		if g.NormalizedTitle == normalized {
			cp := *g
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get: %w", core.ErrNotFound)
}

func (m *memStore) FindSimilar(_ context.Context, normalized string, limit int) ([]Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Game
	for _, gid := range m.order {
		g := m.games[gid]
		if TitleSimilarity(normalized, g.NormalizedTitle) > 0.3 {
			out = append(out, *g)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceWith != nil {
		m.insert(m.raceWith)
		m.raceWith = nil
	}
	for _, existing := range m.games {
		if existing.NormalizedTitle == g.NormalizedTitle {
			return fmt.Errorf("create: %w", core.ErrDuplicateKey)
		}
		for _, kind := range []provider.IDKind{provider.IDKindIGDB, provider.IDKindRAWG, provider.IDKindMSStore, provider.IDKindPSN, provider.IDKindUbisoft} {
			if id := g.ExternalID(kind); id != "" && existing.ExternalID(kind) == id {
				return fmt.Errorf("create: %w", core.ErrDuplicateKey)
			}
		}
	}
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	m.insert(g)
	return nil
}

func (m *memStore) Backfill(_ context.Context, id string, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return core.ErrNotFound
	}
	fill := func(dst **string, src *string) {
		if (*dst == nil || **dst == "") && src != nil {
			*dst = src
		}
	}
	fill(&g.Slug, f.Slug)
	fill(&g.MSStoreID, f.MSStoreID)
	fill(&g.PSNID, f.PSNID)
	fill(&g.UbisoftID, f.UbisoftID)
	fill(&g.CoverURL, f.CoverURL)
	fill(&g.Description, f.Description)
	if g.IGDBID == nil {
		g.IGDBID = f.IGDBID
	}
	if g.RAWGID == nil {
		g.RAWGID = f.RAWGID
	}
	if g.ReleaseDate == nil {
		g.ReleaseDate = f.ReleaseDate
	}
	if len(g.Platforms) == 0 && len(f.Platforms) > 0 {
		g.Platforms = f.Platforms
	}
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

func (m *memStore) get(id string) *Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.games[id]
}

type stubEnricher struct {
	meta  map[string]*Metadata
	err   error
	calls int
}

func (s *stubEnricher) Lookup(_ context.Context, title string) (*Metadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.meta[title], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(store Store, enricher Enricher) *Resolver {
	return NewResolver(store, enricher, config.ResolverConfig{}, quietLogger())
}

func record(title, nativeID string, kind provider.IDKind) provider.Record {
	return provider.Record{
		Title:     title,
		NativeID:  nativeID,
		IDKind:    kind,
		Platforms: []provider.Platform{provider.PlatformPC},
	}
}

func TestResolveCreatesThenMatchesTitleVariants(t *testing.T) {
	store := newMemStore()
	r := newResolver(store, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, record("Forza Horizon 5", "9NFORZA", provider.IDKindMSStore))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, MatchCreated, first.MatchedBy)

	second, err := r.Resolve(ctx, record("forza horizon 5 ", "PPSA-FH5", provider.IDKindPSN))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, MatchTitle, second.MatchedBy)
	assert.Equal(t, first.GameID, second.GameID)
	assert.Equal(t, 1, store.count())

	g := store.get(first.GameID)
	require.NotNil(t, g.PSNID)
	assert.Equal(t, "PPSA-FH5", *g.PSNID)
	assert.Equal(t, "9NFORZA", *g.MSStoreID)
}

func TestResolveByNativeIDWinsOverTitle(t *testing.T) {
	store := newMemStore()
	store.insert(&Game{ID: "g-halo", Title: "Halo Infinite", NormalizedTitle: "halo infinite", MSStoreID: ptr("9NHALO")})
	store.insert(&Game{ID: "g-other", Title: "Halo Infinite (Campaign)", NormalizedTitle: "halo infinite campaign"})
	r := newResolver(store, nil)

	res, err := r.Resolve(context.Background(), record("Halo Infinite (Campaign)", "9NHALO", provider.IDKindMSStore))
	require.NoError(t, err)
	assert.Equal(t, "g-halo", res.GameID)
	assert.Equal(t, MatchNativeID, res.MatchedBy)
}

func TestResolveSimilarTitle(t *testing.T) {
	store := newMemStore()
	store.insert(&Game{
		ID:              "g-skyrim",
		Title:           "The Elder Scrolls V: Skyrim Special Edition",
		NormalizedTitle: NormalizeTitle("The Elder Scrolls V: Skyrim Special Edition"),
	})
	r := newResolver(store, nil)

	res, err := r.Resolve(context.Background(), record("Elder Scrolls V Skyrim Special Edition", "", provider.IDKindPSN))
	require.NoError(t, err)
	assert.Equal(t, "g-skyrim", res.GameID)
	assert.Equal(t, MatchSimilar, res.MatchedBy)
}

func TestResolveKeepsSequelsApart(t *testing.T) {
	store := newMemStore()
	r := newResolver(store, nil)
	ctx := context.Background()

	a, err := r.Resolve(ctx, record("Forza Horizon 4", "", ""))
	require.NoError(t, err)
	b, err := r.Resolve(ctx, record("Forza Horizon 5", "", ""))
	require.NoError(t, err)

	assert.NotEqual(t, a.GameID, b.GameID)
	assert.Equal(t, 2, store.count())
}

func TestResolveNeverOverwritesDescriptiveFields(t *testing.T) {
	store := newMemStore()
	store.insert(&Game{
		ID:              "g1",
		Title:           "Starfield",
		NormalizedTitle: "starfield",
		Description:     ptr("original"),
	})
	r := newResolver(store, nil)

	rec := record("Starfield", "", "")
	rec.Description = "provider blurb"
	rec.CoverURL = "https://img/starfield.png"

	_, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)

	g := store.get("g1")
	assert.Equal(t, "original", *g.Description)
	require.NotNil(t, g.CoverURL)
	assert.Equal(t, "https://img/starfield.png", *g.CoverURL)
	assert.Equal(t, Platforms{"pc"}, g.Platforms)
}

func TestResolveMatchesThroughEnricher(t *testing.T) {
	store := newMemStore()
	store.insert(&Game{ID: "g-ac", Title: "AC Valhalla", NormalizedTitle: "ac valhalla", IGDBID: ptr(int64(119171))})
	enricher := &stubEnricher{meta: map[string]*Metadata{
		"Assassin's Creed Valhalla": {IGDBID: 119171, Title: "Assassin's Creed Valhalla", CoverURL: "https://img/acv.jpg"},
	}}
	r := newResolver(store, enricher)

	res, err := r.Resolve(context.Background(), record("Assassin's Creed Valhalla", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "g-ac", res.GameID)
	assert.Equal(t, MatchIGDB, res.MatchedBy)
	assert.Equal(t, "https://img/acv.jpg", *store.get("g-ac").CoverURL)
}

func TestResolveMatchesThroughRAWGID(t *testing.T) {
	store := newMemStore()
	store.insert(&Game{ID: "g-ori", Title: "Ori WotW", NormalizedTitle: "ori wotw", RAWGID: ptr(int64(58806))})
	enricher := &stubEnricher{meta: map[string]*Metadata{
		"Ori and the Will of the Wisps": {RAWGID: 58806, Title: "Ori and the Will of the Wisps", Description: "platformer"},
	}}
	r := newResolver(store, enricher)

	res, err := r.Resolve(context.Background(), record("Ori and the Will of the Wisps", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "g-ori", res.GameID)
	assert.Equal(t, MatchRAWG, res.MatchedBy)
	assert.Equal(t, "platformer", *store.get("g-ori").Description)
}

func TestChainReturnsFirstHit(t *testing.T) {
	ctx := context.Background()
	igdb := &stubEnricher{meta: map[string]*Metadata{"Hades": {IGDBID: 113112, Title: "Hades"}}}
	rawg := &stubEnricher{meta: map[string]*Metadata{
		"Hades":   {RAWGID: 274755, Title: "Hades"},
		"Tunic":   {RAWGID: 41494, Title: "Tunic"},
		"Celeste": {RAWGID: 28199, Title: "Celeste"},
	}}
	enricher := Chain(igdb, nil, rawg)

	meta, err := enricher.Lookup(ctx, "Hades")
	require.NoError(t, err)
	assert.Equal(t, int64(113112), meta.IGDBID)
	assert.Zero(t, rawg.calls)

	meta, err = enricher.Lookup(ctx, "Tunic")
	require.NoError(t, err)
	assert.Equal(t, int64(41494), meta.RAWGID)

	meta, err = enricher.Lookup(ctx, "Unknown")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestChainSkipsFailingEnricher(t *testing.T) {
	ctx := context.Background()
	down := &stubEnricher{err: errors.New("twitch down")}
	rawg := &stubEnricher{meta: map[string]*Metadata{"Celeste": {RAWGID: 28199, Title: "Celeste"}}}
	enricher := Chain(down, rawg)

	meta, err := enricher.Lookup(ctx, "Celeste")
	require.NoError(t, err)
	assert.Equal(t, int64(28199), meta.RAWGID)

	_, err = enricher.Lookup(ctx, "Unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twitch down")
}

func TestChainOfNothingIsNil(t *testing.T) {
	assert.Nil(t, Chain())
	assert.Nil(t, Chain(nil, nil))

	only := &stubEnricher{}
	assert.Same(t, only, Chain(nil, only))
}

func TestResolveEnricherFailureStillCreates(t *testing.T) {
	store := newMemStore()
	r := newResolver(store, &stubEnricher{err: errors.New("twitch down")})

	res, err := r.Resolve(context.Background(), record("Pentiment", "9NPENTI", provider.IDKindMSStore))
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestResolveCreateUsesMetadata(t *testing.T) {
	store := newMemStore()
	enricher := &stubEnricher{meta: map[string]*Metadata{
		"Hades": {IGDBID: 113112, Title: "Hades", Slug: "hades--1", Description: "rogue-like"},
	}}
	r := newResolver(store, enricher)

	res, err := r.Resolve(context.Background(), record("Hades", "", ""))
	require.NoError(t, err)
	require.True(t, res.Created)

	g := store.get(res.GameID)
	require.NotNil(t, g.IGDBID)
	assert.Equal(t, int64(113112), *g.IGDBID)
	assert.Equal(t, "hades--1", *g.Slug)
	assert.Equal(t, "rogue-like", *g.Description)
}

func TestResolveDuplicateRaceRereads(t *testing.T) {
	store := newMemStore()
	store.raceWith = &Game{ID: "g-winner", Title: "Hi-Fi Rush", NormalizedTitle: NormalizeTitle("Hi-Fi Rush")}
	r := newResolver(store, nil)

	res, err := r.Resolve(context.Background(), record("Hi-Fi RUSH", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "g-winner", res.GameID)
	assert.False(t, res.Created)
	assert.Equal(t, 1, store.count())
}

func TestResolveRejectsEmptyTitle(t *testing.T) {
	r := newResolver(newMemStore(), nil)

	_, err := r.Resolve(context.Background(), record("  ™ ", "", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestResolveStoreErrorPropagates(t *testing.T) {
	store := newMemStore()
	store.failOn = "external"
	r := newResolver(store, nil)

	_, err := r.Resolve(context.Background(), record("Halo", "9N", provider.IDKindMSStore))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotFound)
}

func TestResolveIsStableAcrossProviders(t *testing.T) {
	store := newMemStore()
	r := newResolver(store, nil)
	ctx := context.Background()

	ids := map[string]struct{}{}
	for i, title := range []string{"Hollow Knight", "HOLLOW KNIGHT", "Hollow Knight ", "Hollow  Knight"} {
		res, err := r.Resolve(ctx, record(title, "n"+strconv.Itoa(i), provider.IDKindUbisoft))
		require.NoError(t, err)
		ids[res.GameID] = struct{}{}
	}
	assert.Len(t, ids, 1)
}
