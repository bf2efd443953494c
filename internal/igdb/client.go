// AngelaMos | 2026
// client.go

package igdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/game"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	Name           = "igdb"
	DefaultBaseURL = "https://api.igdb.com/v4"

	gameFields = "fields name, slug, cover.url, first_release_date, platforms.name, summary;"
)

type Game struct {
	ID               int64      `json:"id"`
	Slug             string     `json:"slug"`
	Name             string     `json:"name"`
	Cover            *Cover     `json:"cover,omitempty"`
	FirstReleaseDate int64      `json:"first_release_date,omitempty"`
	Platforms        []Platform `json:"platforms,omitempty"`
	Summary          string     `json:"summary,omitempty"`
}

type Cover struct {
	URL string `json:"url"`
}

type Platform struct {
	Name string `json:"name"`
}

// Client queries the IGDB games endpoint. It implements game.Enricher.
type Client struct {
	fetcher  *provider.Fetcher
	tokens   *TokenCache
	clientID string
	baseURL  string
}

func NewClient(fetcher *provider.Fetcher, tokens *TokenCache, cfg config.IGDBConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		fetcher:  fetcher,
		tokens:   tokens,
		clientID: cfg.ClientID,
		baseURL:  baseURL,
	}
}

func (c *Client) query(ctx context.Context, op, body string) ([]Game, error) {
	var games []Game

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		headers := map[string]string{
			"Client-ID":     c.clientID,
			"Authorization": "Bearer " + token,
		}

		err = c.fetcher.PostText(ctx, op, c.baseURL+"/games", headers, body, &games)
		if err == nil {
			return games, nil
		}

		fe, ok := provider.AsFetchError(err)
		if !ok || fe.StatusCode != http.StatusUnauthorized || attempt > 0 {
			return nil, err
		}
		c.tokens.Invalidate()
	}

	return games, nil
}

// quote renders s as an apicalypse string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func (c *Client) Search(ctx context.Context, q string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	body := fmt.Sprintf("search %s; %s limit %d;", quote(q), gameFields, limit)
	return c.query(ctx, "search", body)
}

func (c *Client) Get(ctx context.Context, id int64) (*Game, error) {
	body := fmt.Sprintf("where id = %d; %s", id, gameFields)
	games, err := c.query(ctx, "get", body)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	return &games[0], nil
}

// Lookup tries a case-insensitive exact name match, then a fuzzy search.
// It returns nil, nil when neither finds anything.
func (c *Client) Lookup(ctx context.Context, title string) (*game.Metadata, error) {
	exact := fmt.Sprintf("where name ~ %s; %s limit 1;", quote(title), gameFields)
	games, err := c.query(ctx, "lookup_exact", exact)
	if err != nil {
		return nil, err
	}

	if len(games) == 0 {
		games, err = c.Search(ctx, title, 1)
		if err != nil {
			return nil, err
		}
	}
	if len(games) == 0 {
		return nil, nil
	}

	meta := ToMetadata(games[0])
	return &meta, nil
}

func ToMetadata(g Game) game.Metadata {
	meta := game.Metadata{
		IGDBID:      g.ID,
		Title:       g.Name,
		Slug:        g.Slug,
		Description: g.Summary,
	}

	if g.Cover != nil && g.Cover.URL != "" {
		meta.CoverURL = coverURL(g.Cover.URL)
	}

	if g.FirstReleaseDate > 0 {
		t := time.Unix(g.FirstReleaseDate, 0).UTC().Truncate(24 * time.Hour)
		meta.ReleaseDate = &t
	}

	seen := make(map[string]bool)
	for _, p := range g.Platforms {
		name := platform(p.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		meta.Platforms = append(meta.Platforms, name)
	}

	return meta
}

func coverURL(raw string) string {
	url := strings.Replace(raw, "t_thumb", "t_cover_big", 1)
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

// platform folds IGDB platform names into pc, playstation, xbox and switch.
func platform(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "pc"), strings.Contains(lower, "windows"),
		strings.Contains(lower, "linux"), strings.Contains(lower, "mac"):
		return "pc"
	case strings.Contains(lower, "playstation"):
		return "playstation"
	case strings.Contains(lower, "xbox"):
		return "xbox"
	case strings.Contains(lower, "switch"):
		return "switch"
	}
	return ""
}
