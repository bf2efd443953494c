// AngelaMos | 2026
// client.go

package rawg

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/game"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	Name           = "rawg"
	DefaultBaseURL = "https://api.rawg.io/api"

	defaultPageSize = 5
	maxPageSize     = 40
)

type Game struct {
	ID              int64           `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	BackgroundImage string          `json:"background_image"`
	Released        string          `json:"released"`
	Platforms       []PlatformEntry `json:"platforms"`
	DescriptionRaw  string          `json:"description_raw,omitempty"`
}

type PlatformEntry struct {
	Platform struct {
		Slug string `json:"slug"`
	} `json:"platform"`
}

type searchResponse struct {
	Count   int    `json:"count"`
	Results []Game `json:"results"`
}

// Client queries the RAWG games API. It implements game.Enricher and is
// chained behind IGDB as a secondary metadata source.
type Client struct {
	fetcher  *provider.Fetcher
	apiKey   string
	baseURL  string
	pageSize int
}

func NewClient(fetcher *provider.Fetcher, cfg config.RAWGConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &provider.ConfigurationError{Provider: Name, Field: "api_key"}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		fetcher:  fetcher,
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		pageSize: min(pageSize, maxPageSize),
	}, nil
}

func (c *Client) Search(ctx context.Context, q string, page int) ([]Game, error) {
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("search", q)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))

	var resp searchResponse
	if err := c.fetcher.GetJSON(ctx, "search", c.baseURL+"/games?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Results, nil
}

// Get returns nil, nil when RAWG has no game with that id.
func (c *Client) Get(ctx context.Context, id int64) (*Game, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)

	var g Game
	endpoint := c.baseURL + "/games/" + strconv.FormatInt(id, 10) + "?" + params.Encode()
	if err := c.fetcher.GetJSON(ctx, "get", endpoint, nil, &g); err != nil {
		if fe, ok := provider.AsFetchError(err); ok && fe.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &g, nil
}

// Lookup searches for title and prefers a result whose normalized name
// matches exactly over the top-ranked one. The chosen game is re-read from
// the details endpoint for its description.
func (c *Client) Lookup(ctx context.Context, title string) (*game.Metadata, error) {
	results, err := c.Search(ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	pick := results[0]
	want := game.NormalizeTitle(title)
	for _, r := range results {
		if game.NormalizeTitle(r.Name) == want {
			pick = r
			break
		}
	}

	if detail, err := c.Get(ctx, pick.ID); err == nil && detail != nil {
		pick = *detail
	}

	meta := ToMetadata(pick)
	return &meta, nil
}

func ToMetadata(g Game) game.Metadata {
	meta := game.Metadata{
		RAWGID:      g.ID,
		Title:       g.Name,
		Slug:        g.Slug,
		CoverURL:    g.BackgroundImage,
		Description: strings.TrimSpace(g.DescriptionRaw),
		ReleaseDate: provider.ParseDate(g.Released),
	}

	seen := make(map[string]bool)
	for _, p := range g.Platforms {
		name := platform(p.Platform.Slug)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		meta.Platforms = append(meta.Platforms, name)
	}

	return meta
}

// platform folds RAWG platform slugs into pc, playstation, xbox, switch
// and cloud. Other slugs are dropped.
func platform(slug string) string {
	switch slug {
	case "pc", "macos", "linux":
		return "pc"
	case "playstation5", "playstation4", "playstation3":
		return "playstation"
	case "xbox-series-x", "xbox-one", "xbox360":
		return "xbox"
	case "nintendo-switch":
		return "switch"
	case "web":
		return "cloud"
	}
	return ""
}
