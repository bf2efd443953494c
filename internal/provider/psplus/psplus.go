// AngelaMos | 2026
// psplus.go

package psplus

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	Name = "psplus"

	CategoryGameCatalog = "3a7006fe-e26f-49fe-87e5-4473d7ed0fb2"
	CategoryClassics    = "13d915bc-8a8e-4723-8474-c6f922b6de83"

	TierExtra   = "extra"
	TierPremium = "premium"

	operationName = "categoryGridRetrieve"
	queryHash     = "257713466fc3264850aa473409a29088e3a4115e6e69e9fb3e061c8dd5b9f5c6"
)

// Adapter pages through the PlayStation Store GraphQL category grid for the
// PS Plus game catalog and, optionally, the classics catalog.
type Adapter struct {
	fetcher         *provider.Fetcher
	endpoint        string
	locale          string
	pageSize        int
	pageDelay       time.Duration
	includeClassics bool
}

func New(fetcher *provider.Fetcher, cfg config.PSPlusConfig) *Adapter {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "en-US"
	}

	return &Adapter{
		fetcher:         fetcher,
		endpoint:        cfg.GraphQLURL,
		locale:          locale,
		pageSize:        pageSize,
		pageDelay:       cfg.PageDelay,
		includeClassics: cfg.IncludeClassics,
	}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Subscription() string {
	return Name
}

type category struct {
	id   string
	tier string
}

func (a *Adapter) categories() []category {
	out := []category{{id: CategoryGameCatalog, tier: TierExtra}}
	if a.includeClassics {
		out = append(out, category{id: CategoryClassics, tier: TierPremium})
	}
	return out
}

func (a *Adapter) Fetch(ctx context.Context, params provider.Params) *provider.Stream {
	return provider.NewStream(params, func(_ *provider.Stream, yield func(provider.Record, error) bool) {
		for _, cat := range a.categories() {
			if !a.fetchCategory(ctx, cat, yield) {
				return
			}
		}
	})
}

// fetchCategory reports whether production should continue.
func (a *Adapter) fetchCategory(
	ctx context.Context,
	cat category,
	yield func(provider.Record, error) bool,
) bool {
	offset := 0
	for {
		page, err := a.page(ctx, cat.id, offset)
		if err != nil {
			yield(provider.Record{}, err)
			return false
		}

		for _, p := range page.Products {
			rec, ok := toRecord(p)
			if !ok {
				continue
			}
			rec.Tier = cat.tier
			if !yield(rec, nil) {
				return false
			}
		}

		offset += a.pageSize
		if len(page.Products) == 0 || offset >= page.PageInfo.TotalCount {
			return true
		}

		if err := a.wait(ctx); err != nil {
			yield(provider.Record{}, &provider.FetchError{
				Provider: Name,
				Op:       operationName,
				Err:      err,
			})
			return false
		}
	}
}

func (a *Adapter) wait(ctx context.Context) error {
	if a.pageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.pageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gridResponse struct {
	Data struct {
		CategoryGridRetrieve *grid `json:"categoryGridRetrieve"`
	} `json:"data"`
}

type grid struct {
	Products []product `json:"products"`
	PageInfo pageInfo  `json:"pageInfo"`
}

type pageInfo struct {
	TotalCount int `json:"totalCount"`
	Offset     int `json:"offset"`
	Size       int `json:"size"`
}

type product struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Descriptions []description `json:"descriptions"`
	Media        struct {
		Images []image `json:"images"`
	} `json:"media"`
	ReleaseDate string   `json:"releaseDate"`
	Platforms   []string `json:"platforms"`
}

type description struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type image struct {
	Role string `json:"role"`
	URL  string `json:"url"`
}

func (a *Adapter) page(ctx context.Context, categoryID string, offset int) (*grid, error) {
	u, err := a.pageURL(categoryID, offset)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Accept-Language":             a.locale,
		"X-PSN-Store-Locale-Override": a.locale,
		"x-apollo-operation-name":     operationName,
	}

	var resp gridResponse
	if err := a.fetcher.GetJSON(ctx, operationName, u, headers, &resp); err != nil {
		return nil, err
	}

	if resp.Data.CategoryGridRetrieve == nil {
		return nil, &provider.FetchError{
			Provider: Name,
			Op:       operationName,
			URL:      u,
			Err:      fmt.Errorf("category %s: response has no grid, persisted query hash may be stale", categoryID),
		}
	}

	return resp.Data.CategoryGridRetrieve, nil
}

func (a *Adapter) pageURL(categoryID string, offset int) (string, error) {
	variables, err := json.Marshal(map[string]any{
		"id":           categoryID,
		"pageArgs":     map[string]int{"offset": offset, "size": a.pageSize},
		"sortBy":       map[string]any{"name": "productReleaseDate", "isAscending": false},
		"filterBy":     []string{},
		"facetOptions": []string{},
	})
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}

	extensions, err := json.Marshal(map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": queryHash},
	})
	if err != nil {
		return "", fmt.Errorf("encode extensions: %w", err)
	}

	q := url.Values{}
	q.Set("operationName", operationName)
	q.Set("variables", string(variables))
	q.Set("extensions", string(extensions))

	return a.endpoint + "?" + q.Encode(), nil
}

func toRecord(p product) (provider.Record, bool) {
	title := strings.TrimSpace(p.Name)
	if title == "" {
		return provider.Record{}, false
	}

	return provider.Record{
		Title:       title,
		Description: pickDescription(p.Descriptions),
		CoverURL:    pickCover(p.Media.Images),
		ReleaseDate: provider.ParseDate(p.ReleaseDate),
		NativeID:    p.ID,
		IDKind:      provider.IDKindPSN,
		Platforms:   platforms(p.Platforms).Slice(),
	}, true
}

func pickCover(images []image) string {
	for _, role := range []string{"MASTER", "GAMEHUB_COVER_ART", "BACKGROUND"} {
		for _, img := range images {
			if img.Role == role {
				return img.URL
			}
		}
	}
	return ""
}

func pickDescription(descs []description) string {
	for _, kind := range []string{"SHORT_DESCRIPTION", "LONG_DESCRIPTION"} {
		for _, d := range descs {
			if d.Type == kind && d.Value != "" {
				return d.Value
			}
		}
	}
	return ""
}

// platforms keeps the PS4/PS5 split the store reports. Listings with no
// recognizable console generation fall back to the generic console tag.
func platforms(raw []string) *provider.PlatformSet {
	set := provider.NewPlatformSet()
	for _, gen := range []provider.Platform{provider.PlatformPS5, provider.PlatformPS4} {
		for _, r := range raw {
			if strings.Contains(strings.ToLower(r), string(gen)) {
				set.Add(gen)
				break
			}
		}
	}
	if set.Len() == 0 {
		set.Add(provider.PlatformConsole)
	}
	return set
}
