// AngelaMos | 2026
// engine_test.go

package availability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/middleware"
	"github.com/gotitgames/catalog/internal/subscription"
)

type fakeEntries struct {
	entries []catalog.Entry
	titles  map[string]string
	queries []catalog.ListingQuery
}

func (f *fakeEntries) ListByGame(_ context.Context, gameID string) ([]catalog.Entry, error) {
	var out []catalog.Entry
	for _, e := range f.entries {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListByStatus mirrors the store: filter, order groups by earliest date
// then title, and cap the number of groups.
func (f *fakeEntries) ListByStatus(_ context.Context, q catalog.ListingQuery) ([]catalog.Listing, error) {
	f.queries = append(f.queries, q)

	type key struct{ game, sub string }
	var out []catalog.Listing
	first := map[key]*time.Time{}
	for _, e := range f.entries {
		if e.Status != q.Status {
			continue
		}
		if len(q.SubscriptionIDs) > 0 && !slices.Contains(q.SubscriptionIDs, e.SubscriptionID) {
			continue
		}
		date := e.LeavingDate
		if q.Status == catalog.StatusComingSoon {
			date = e.AvailableDate
		}
		k := key{e.GameID, e.SubscriptionID}
		if prev, ok := first[k]; !ok || earlier(date, prev) {
			first[k] = date
		}
		out = append(out, catalog.Listing{
			Entry:            e,
			GameTitle:        f.titles[e.GameID],
			SubscriptionSlug: e.SubscriptionID[len("sub-"):],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := first[key{out[i].GameID, out[i].SubscriptionID}], first[key{out[j].GameID, out[j].SubscriptionID}]
		if earlier(a, b) || earlier(b, a) {
			return earlier(a, b)
		}
		return out[i].GameTitle < out[j].GameTitle
	})

	if q.Groups > 0 {
		kept := map[key]bool{}
		capped := out[:0]
		for _, l := range out {
			k := key{l.GameID, l.SubscriptionID}
			if !kept[k] {
				if len(kept) == q.Groups {
					continue
				}
				kept[k] = true
			}
			capped = append(capped, l)
		}
		out = capped
	}
	return out, nil
}

func (f *fakeEntries) AvailableGameTiers(_ context.Context, subID string) ([]catalog.GameTier, error) {
	var out []catalog.GameTier
	for _, e := range f.entries {
		if e.SubscriptionID == subID && e.Status == catalog.StatusAvailable {
			out = append(out, catalog.GameTier{GameID: e.GameID, Tier: e.Tier})
		}
	}
	return out, nil
}

type fakeSubscriptions struct {
	holdings map[string][]subscription.UserSubscription
}

func (fakeSubscriptions) List(context.Context) ([]subscription.Subscription, error) {
	subs := subscription.Seeds()
	for i := range subs {
		subs[i].ID = "sub-" + subs[i].Slug
	}
	return subs, nil
}

func (f fakeSubscriptions) ListHoldings(_ context.Context, userID string) ([]subscription.UserSubscription, error) {
	return f.holdings[userID], nil
}

func hold(slug, tier string) subscription.UserSubscription {
	return subscription.UserSubscription{SubscriptionID: "sub-" + slug, SubscriptionSlug: slug, Tier: tier}
}

var (
	halo      = uuid.NewString()
	forza     = uuid.NewString()
	spiderMan = uuid.NewString()
	base      = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
)

func at(days int) *time.Time {
	t := base.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func entry(game, sub, platform, tier string, status catalog.Status) catalog.Entry {
	return catalog.Entry{
		ID:             uuid.NewString(),
		GameID:         game,
		SubscriptionID: "sub-" + sub,
		Platform:       platform,
		Tier:           tier,
		Status:         status,
	}
}

func newEngine(entries []catalog.Entry, holdings map[string][]subscription.UserSubscription) *Engine {
	engine, _ := newEngineWithStore(entries, holdings)
	return engine
}

func newEngineWithStore(
	entries []catalog.Entry,
	holdings map[string][]subscription.UserSubscription,
) (*Engine, *fakeEntries) {
	store := &fakeEntries{
		entries: entries,
		titles:  map[string]string{halo: "Halo Infinite", forza: "Forza Horizon 5", spiderMan: "Spider-Man"},
	}
	engine := NewEngine(store, fakeSubscriptions{holdings: holdings}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return engine, store
}

func TestCoreHolderCannotPlayUltimateEntry(t *testing.T) {
	engine := newEngine(
		[]catalog.Entry{entry(halo, "gamepass", "pc", "ultimate", catalog.StatusAvailable)},
		map[string][]subscription.UserSubscription{"u1": {hold("gamepass", "core")}},
	)

	res, err := engine.CheckAvailability(context.Background(), halo, "u1")
	require.NoError(t, err)

	assert.True(t, res.Available)
	assert.False(t, res.InUserSubscriptions)
	require.Len(t, res.Entries, 1)
	assert.False(t, res.Entries[0].UserHasAccess)
	require.NotNil(t, res.Entries[0].Subscription)
	assert.Equal(t, "gamepass", res.Entries[0].Subscription.Slug)
}

func TestTierMonotonicity(t *testing.T) {
	for _, sub := range subscription.Seeds() {
		for _, held := range sub.Tiers {
			for _, required := range sub.Tiers {
				engine := newEngine(
					[]catalog.Entry{entry(halo, sub.Slug, "pc", required.Slug, catalog.StatusAvailable)},
					map[string][]subscription.UserSubscription{"u1": {hold(sub.Slug, held.Slug)}},
				)

				res, err := engine.CheckAvailability(context.Background(), halo, "u1")
				require.NoError(t, err)

				want := held.Rank >= required.Rank
				assert.Equal(t, want, res.Entries[0].UserHasAccess,
					"%s held=%s required=%s", sub.Slug, held.Slug, required.Slug)
				assert.Equal(t, want, res.InUserSubscriptions)
			}
		}
	}
}

func TestRanksDoNotCrossSubscriptions(t *testing.T) {
	engine := newEngine(
		[]catalog.Entry{entry(halo, "gamepass", "pc", "standard", catalog.StatusAvailable)},
		map[string][]subscription.UserSubscription{"u1": {hold("psplus", "premium")}},
	)

	res, err := engine.CheckAvailability(context.Background(), halo, "u1")
	require.NoError(t, err)
	assert.False(t, res.InUserSubscriptions)
}

func TestCheckAvailabilityWithoutUser(t *testing.T) {
	engine := newEngine(
		[]catalog.Entry{entry(halo, "gamepass", "pc", "standard", catalog.StatusLeavingSoon)},
		nil,
	)

	res, err := engine.CheckAvailability(context.Background(), halo, "")
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.False(t, res.InUserSubscriptions)
	assert.Len(t, res.Entries, 1)
}

func TestCheckAvailabilityUnknownGame(t *testing.T) {
	engine := newEngine(nil, nil)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		res, err := engine.CheckAvailability(context.Background(), id, "u1")
		require.NoError(t, err)
		assert.False(t, res.Available)
		assert.Empty(t, res.Entries)
	}
}

func TestCountAvailableGames(t *testing.T) {
	entries := []catalog.Entry{
		entry(halo, "gamepass", "pc", "standard", catalog.StatusAvailable),
		entry(halo, "gamepass", "console", "standard", catalog.StatusAvailable),
		entry(halo, "eaplay", "pc", "standard", catalog.StatusAvailable),
		entry(forza, "gamepass", "pc", "ultimate", catalog.StatusAvailable),
		entry(spiderMan, "psplus", "ps5", "extra", catalog.StatusAvailable),
		entry(spiderMan, "gamepass", "pc", "core", catalog.StatusComingSoon),
	}
	holdings := map[string][]subscription.UserSubscription{
		"standard": {hold("gamepass", "standard"), hold("eaplay", "standard")},
		"ultimate": {hold("gamepass", "ultimate"), hold("psplus", "extra")},
	}
	engine := newEngine(entries, holdings)
	ctx := context.Background()

	n, err := engine.CountAvailableGames(ctx, "standard")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = engine.CountAvailableGames(ctx, "ultimate")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = engine.CountAvailableGames(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLeavingSoonGroupsPlatforms(t *testing.T) {
	pc := entry(halo, "gamepass", "pc", "standard", catalog.StatusLeavingSoon)
	pc.LeavingDate = at(5)
	console := entry(halo, "gamepass", "console", "standard", catalog.StatusLeavingSoon)
	console.LeavingDate = at(5)
	ps := entry(spiderMan, "psplus", "ps5", "extra", catalog.StatusLeavingSoon)
	ps.LeavingDate = at(2)
	undated := entry(forza, "gamepass", "pc", "standard", catalog.StatusLeavingSoon)

	engine := newEngine([]catalog.Entry{pc, undated, console, ps}, nil)

	groups, err := engine.LeavingSoon(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, spiderMan, groups[0].GameID)
	assert.Equal(t, halo, groups[1].GameID)
	assert.Equal(t, []string{"console", "pc"}, groups[1].Platforms)
	assert.Equal(t, forza, groups[2].GameID)
	assert.Nil(t, groups[2].Date)

	limited, err := engine.LeavingSoon(context.Background(), Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, spiderMan, limited[0].GameID)
}

func TestComingSoonFilteredToUser(t *testing.T) {
	gp := entry(halo, "gamepass", "pc", "standard", catalog.StatusComingSoon)
	gp.AvailableDate = at(3)
	ps := entry(spiderMan, "psplus", "ps5", "extra", catalog.StatusComingSoon)
	ps.AvailableDate = at(1)

	engine := newEngine([]catalog.Entry{gp, ps}, map[string][]subscription.UserSubscription{
		"u1": {hold("gamepass", "core")},
	})
	ctx := context.Background()

	groups, err := engine.ComingSoon(ctx, Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, halo, groups[0].GameID)
	assert.Equal(t, at(3), groups[0].Date)

	groups, err = engine.ComingSoon(ctx, Filter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, groups)

	groups, err = engine.ComingSoon(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestListingPushesLimitAndHoldingsToStore(t *testing.T) {
	var entries []catalog.Entry
	for day := 1; day <= 5; day++ {
		for _, platform := range []string{"pc", "console"} {
			e := entry(uuid.NewString(), "gamepass", platform, "standard", catalog.StatusLeavingSoon)
			e.LeavingDate = at(day)
			entries = append(entries, e)
		}
	}
	ps := entry(spiderMan, "psplus", "ps5", "extra", catalog.StatusLeavingSoon)
	ps.LeavingDate = at(0)
	entries = append(entries, ps)

	engine, store := newEngineWithStore(entries, map[string][]subscription.UserSubscription{
		"u1": {hold("gamepass", "ultimate")},
	})

	groups, err := engine.LeavingSoon(context.Background(), Filter{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Equal(t, "sub-gamepass", g.SubscriptionID)
		assert.Len(t, g.Platforms, 2)
	}
	assert.Equal(t, at(1), groups[0].Date)

	require.Len(t, store.queries, 1)
	assert.Equal(t, catalog.ListingQuery{
		Status:          catalog.StatusLeavingSoon,
		SubscriptionIDs: []string{"sub-gamepass"},
		Groups:          2,
	}, store.queries[0])
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 25, ClampLimit(25))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}

func newRouter(engine *Engine, userID string) http.Handler {
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(middleware.WithUser(r.Context(), userID, "user"))
			}
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	NewHandler(engine).RegisterRoutes(r, inject, inject)
	return r
}

func TestHandlerCheck(t *testing.T) {
	engine := newEngine(
		[]catalog.Entry{entry(halo, "gamepass", "pc", "core", catalog.StatusAvailable)},
		map[string][]subscription.UserSubscription{"u1": {hold("gamepass", "standard")}},
	)

	rec := httptest.NewRecorder()
	newRouter(engine, "u1").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+halo+"/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data AvailabilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Available)
	assert.True(t, body.Data.InUserSubscriptions)
	require.Len(t, body.Data.Entries, 1)
	assert.Equal(t, "gamepass", body.Data.Entries[0].SubscriptionSlug)
	require.NotNil(t, body.Data.Entries[0].Tier)
	assert.Equal(t, 1, body.Data.Entries[0].Tier.Rank)
}

func TestHandlerMineRequiresSession(t *testing.T) {
	engine := newEngine(nil, nil)

	rec := httptest.NewRecorder()
	newRouter(engine, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/leaving-soon?mine=true", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(engine, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/leaving-soon", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
