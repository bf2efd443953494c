// AngelaMos | 2026
// psplus_test.go

package psplus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/provider"
)

type variables struct {
	ID       string `json:"id"`
	PageArgs struct {
		Offset int `json:"offset"`
		Size   int `json:"size"`
	} `json:"pageArgs"`
}

type fakeStore struct {
	mu       sync.Mutex
	catalogs map[string][]product
	fail     map[string]bool
	requests []variables
}

func (s *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("operationName") != operationName || r.Header.Get("X-PSN-Store-Locale-Override") != "en-US" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var vars variables
	if err := json.Unmarshal([]byte(q.Get("variables")), &vars); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, vars)
	s.mu.Unlock()

	if s.fail[vars.ID] {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	all := s.catalogs[vars.ID]
	start := min(vars.PageArgs.Offset, len(all))
	end := min(start+vars.PageArgs.Size, len(all))

	var resp gridResponse
	resp.Data.CategoryGridRetrieve = &grid{
		Products: all[start:end],
		PageInfo: pageInfo{TotalCount: len(all), Offset: start, Size: vars.PageArgs.Size},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func products(prefix string, n int) []product {
	out := make([]product, n)
	for i := range out {
		out[i] = product{
			ID:        prefix + strconv.Itoa(i),
			Name:      prefix + " game " + strconv.Itoa(i),
			Platforms: []string{"PS5"},
		}
	}
	return out
}

func newAdapter(t *testing.T, store *fakeStore, classics bool) *Adapter {
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	fetcher := provider.NewFetcher(provider.FetcherConfig{Provider: Name, Client: srv.Client()})
	return New(fetcher, config.PSPlusConfig{
		GraphQLURL:      srv.URL,
		Locale:          "en-US",
		PageSize:        2,
		IncludeClassics: classics,
	})
}

func TestFetchPagesUntilTotal(t *testing.T) {
	store := &fakeStore{catalogs: map[string][]product{
		CategoryGameCatalog: products("cat", 5),
		CategoryClassics:    products("classic", 1),
	}}

	recs, err := provider.Collect(newAdapter(t, store, true).Fetch(context.Background(), provider.Params{}))
	require.NoError(t, err)
	require.Len(t, recs, 6)

	for _, rec := range recs[:5] {
		assert.Equal(t, TierExtra, rec.Tier)
	}
	assert.Equal(t, TierPremium, recs[5].Tier)
	assert.Equal(t, "classic0", recs[5].NativeID)
	assert.Equal(t, provider.IDKindPSN, recs[0].IDKind)

	offsets := []int{}
	for _, req := range store.requests {
		if req.ID == CategoryGameCatalog {
			offsets = append(offsets, req.PageArgs.Offset)
		}
	}
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestFetchWithoutClassics(t *testing.T) {
	store := &fakeStore{catalogs: map[string][]product{
		CategoryGameCatalog: products("cat", 1),
		CategoryClassics:    products("classic", 3),
	}}

	recs, err := provider.Collect(newAdapter(t, store, false).Fetch(context.Background(), provider.Params{}))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestFetchLimitStopsPaging(t *testing.T) {
	store := &fakeStore{catalogs: map[string][]product{
		CategoryGameCatalog: products("cat", 10),
	}}

	recs, err := provider.Collect(newAdapter(t, store, false).Fetch(context.Background(), provider.Params{Limit: 3}))
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Len(t, store.requests, 2)
}

func TestFetchFailureKeepsEarlierRecords(t *testing.T) {
	store := &fakeStore{
		catalogs: map[string][]product{CategoryGameCatalog: products("cat", 3)},
		fail:     map[string]bool{CategoryClassics: true},
	}

	recs, err := provider.Collect(newAdapter(t, store, true).Fetch(context.Background(), provider.Params{}))
	require.Error(t, err)
	assert.True(t, provider.IsFetchError(err))
	assert.Len(t, recs, 3)
}

func TestToRecord(t *testing.T) {
	p := product{
		ID:   "UP9000-PPSA01",
		Name: "Ratchet & Clank: Rift Apart",
		Descriptions: []description{
			{Type: "LONG_DESCRIPTION", Value: "long"},
			{Type: "SHORT_DESCRIPTION", Value: "short"},
		},
		ReleaseDate: "2021-06-11T00:00:00Z",
		Platforms:   []string{"PS4", "PS5"},
	}
	p.Media.Images = []image{
		{Role: "BACKGROUND", URL: "https://img/bg.png"},
		{Role: "GAMEHUB_COVER_ART", URL: "https://img/cover.png"},
	}

	rec, ok := toRecord(p)
	require.True(t, ok)
	assert.Equal(t, "short", rec.Description)
	assert.Equal(t, "https://img/cover.png", rec.CoverURL)
	assert.Equal(t, []provider.Platform{provider.PlatformPS5, provider.PlatformPS4}, rec.Platforms)
	require.NotNil(t, rec.ReleaseDate)
	assert.Equal(t, "2021-06-11", rec.ReleaseDate.Format("2006-01-02"))

	_, ok = toRecord(product{ID: "x"})
	assert.False(t, ok)
}

func TestPlatformsDefaultToConsole(t *testing.T) {
	assert.Equal(t, []provider.Platform{provider.PlatformConsole}, platforms(nil).Slice())
	assert.Equal(t, []provider.Platform{provider.PlatformConsole}, platforms([]string{"PS3"}).Slice())
}
