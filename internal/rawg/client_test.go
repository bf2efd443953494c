// AngelaMos | 2026
// client_test.go

package rawg

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/provider"
)

const searchJSON = `{"count": 2, "results": [
	{"id": 3498, "slug": "grand-theft-auto-v", "name": "Grand Theft Auto V", "released": "2013-09-17",
	 "platforms": [{"platform": {"slug": "pc"}}]},
	{"id": 58806, "slug": "ori-and-the-will-of-the-wisps", "name": "Ori and the Will of the Wisps",
	 "background_image": "https://media.rawg.io/ori.jpg", "released": "2020-03-11",
	 "platforms": [{"platform": {"slug": "pc"}}, {"platform": {"slug": "xbox-one"}},
	               {"platform": {"slug": "xbox-series-x"}}, {"platform": {"slug": "nintendo-switch"}},
	               {"platform": {"slug": "atari-st"}}]}
]}`

const detailJSON = `{"id": 58806, "slug": "ori-and-the-will-of-the-wisps", "name": "Ori and the Will of the Wisps",
	"background_image": "https://media.rawg.io/ori.jpg", "released": "2020-03-11",
	"description_raw": "  Ori returns.  ",
	"platforms": [{"platform": {"slug": "pc"}}, {"platform": {"slug": "xbox-one"}}]}`

type fakeRAWG struct {
	mu    sync.Mutex
	paths []string
	keys  []string

	search string
	detail map[string]string
}

func (f *fakeRAWG) server(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.keys = append(f.keys, r.URL.Query().Get("key"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/games" {
			assert.Equal(t, "5", r.URL.Query().Get("page_size"))
			out := f.search
			if out == "" {
				out = `{"count": 0, "results": []}`
			}
			_, _ = io.WriteString(w, out)
			return
		}
		body, ok := f.detail[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail": "Not found."}`)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, f *fakeRAWG) *Client {
	t.Helper()
	srv := f.server(t)

	fetcher := provider.NewFetcher(provider.FetcherConfig{Provider: Name, Client: srv.Client()})
	c, err := NewClient(fetcher, config.RAWGConfig{APIKey: "k", BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(nil, config.RAWGConfig{})
	require.Error(t, err)
	assert.True(t, provider.IsConfigurationError(err))
}

func TestLookupPrefersExactName(t *testing.T) {
	f := &fakeRAWG{
		search: searchJSON,
		detail: map[string]string{"/api/games/58806": detailJSON},
	}
	c := newTestClient(t, f)

	meta, err := c.Lookup(context.Background(), "Ori and the Will of the Wisps")
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, int64(58806), meta.RAWGID)
	assert.Zero(t, meta.IGDBID)
	assert.Equal(t, "Ori returns.", meta.Description)
	assert.Equal(t, "https://media.rawg.io/ori.jpg", meta.CoverURL)
	assert.Equal(t, []string{"pc", "xbox"}, meta.Platforms)
	require.NotNil(t, meta.ReleaseDate)
	assert.Equal(t, time.Date(2020, 3, 11, 0, 0, 0, 0, time.UTC), *meta.ReleaseDate)

	assert.Equal(t, []string{"/api/games", "/api/games/58806"}, f.paths)
	assert.Equal(t, []string{"k", "k"}, f.keys)
}

func TestLookupKeepsSearchResultWhenDetailMissing(t *testing.T) {
	c := newTestClient(t, &fakeRAWG{search: searchJSON})

	meta, err := c.Lookup(context.Background(), "Ori and the Will of the Wisps")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(58806), meta.RAWGID)
	assert.Empty(t, meta.Description)
	assert.Equal(t, []string{"pc", "xbox", "switch"}, meta.Platforms)
}

func TestLookupUnknownTitle(t *testing.T) {
	c := newTestClient(t, &fakeRAWG{})

	meta, err := c.Lookup(context.Background(), "Definitely Not A Game")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestLookupSearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	fetcher := provider.NewFetcher(provider.FetcherConfig{Provider: Name, Client: srv.Client()})
	c, err := NewClient(fetcher, config.RAWGConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "Halo")
	require.Error(t, err)
	fe, ok := provider.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
}

func TestGetMissingGame(t *testing.T) {
	c := newTestClient(t, &fakeRAWG{})

	g, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestPlatformSlugs(t *testing.T) {
	tests := map[string]string{
		"pc":              "pc",
		"macos":           "pc",
		"playstation5":    "playstation",
		"xbox360":         "xbox",
		"nintendo-switch": "switch",
		"web":             "cloud",
		"atari-st":        "",
	}
	for slug, want := range tests {
		assert.Equal(t, want, platform(slug), slug)
	}
}
