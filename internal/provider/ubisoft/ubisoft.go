// AngelaMos | 2026
// ubisoft.go

package ubisoft

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	Name = "ubisoftplus"

	TierClassics = "classics"
	TierPremium  = "premium"

	defaultMaxPages = 50
)

// Adapter reads the Ubisoft Store search filtered to Ubisoft+. The store
// feed is unreliable, so when it yields nothing the seed list is served
// instead and the stream reports the fallback source.
type Adapter struct {
	fetcher       *provider.Fetcher
	endpoint      string
	pageSize      int
	maxPages      int
	forceFallback bool
	logger        *slog.Logger
}

func New(fetcher *provider.Fetcher, cfg config.UbisoftConfig, logger *slog.Logger) *Adapter {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Adapter{
		fetcher:       fetcher,
		endpoint:      cfg.SearchURL,
		pageSize:      pageSize,
		maxPages:      maxPages,
		forceFallback: cfg.ForceFallback,
		logger:        logger.With("provider", Name),
	}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Subscription() string {
	return Name
}

type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription"`
	ImageURL         string   `json:"imageUrl"`
	ReleaseDate      string   `json:"releaseDate"`
	Platforms        []string `json:"platforms"`
	SubscriptionType string   `json:"subscriptionType"`
}

func (a *Adapter) Fetch(ctx context.Context, params provider.Params) *provider.Stream {
	return provider.NewStream(params, func(s *provider.Stream, yield func(provider.Record, error) bool) {
		if a.forceFallback {
			a.serveSeed(s, yield)
			return
		}

		yielded := 0
		seen := make(map[string]struct{})

		// The store may ignore the page parameter. A page with no unseen
		// product ends paging.
		for page := 1; page <= a.maxPages; page++ {
			products, err := a.search(ctx, page)
			if err != nil {
				if yielded > 0 {
					yield(provider.Record{}, err)
					return
				}
				a.logger.Warn("store search failed, serving seed list", "error", err)
				break
			}

			fresh := 0
			for _, p := range products {
				key := p.ID
				if key == "" {
					key = strings.ToLower(strings.TrimSpace(p.Name))
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				fresh++

				rec, ok := toRecord(p)
				if !ok {
					continue
				}
				yielded++
				if !yield(rec, nil) {
					return
				}
			}

			if len(products) < a.pageSize || fresh == 0 {
				break
			}
			if page == a.maxPages {
				a.logger.Warn("store search hit the page cap", "pages", page)
			}
		}

		if yielded > 0 {
			return
		}

		a.serveSeed(s, yield)
	})
}

func (a *Adapter) serveSeed(s *provider.Stream, yield func(provider.Record, error) bool) {
	s.SetSource(provider.SourceFallback)
	for _, rec := range seedRecords() {
		if !yield(rec, nil) {
			return
		}
	}
}

func (a *Adapter) search(ctx context.Context, page int) ([]product, error) {
	q := url.Values{}
	q.Set("subscription", "ubisoftplus")
	q.Set("pageSize", strconv.Itoa(a.pageSize))
	q.Set("page", strconv.Itoa(page))

	var resp searchResponse
	if err := a.fetcher.GetJSON(ctx, "search", a.endpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Products, nil
}

func toRecord(p product) (provider.Record, bool) {
	title := strings.TrimSpace(p.Name)
	if title == "" {
		return provider.Record{}, false
	}

	tier := TierClassics
	if strings.EqualFold(p.SubscriptionType, TierPremium) {
		tier = TierPremium
	}

	// Ubisoft+ is a PC service first; listings without any platform
	// signal are PC titles.
	set := platforms(p.Platforms)
	if len(p.Platforms) == 0 {
		set.Add(provider.PlatformPC)
	}

	return provider.Record{
		Title:       title,
		Description: strings.TrimSpace(p.ShortDescription),
		CoverURL:    p.ImageURL,
		ReleaseDate: provider.ParseDate(p.ReleaseDate),
		NativeID:    p.ID,
		IDKind:      provider.IDKindUbisoft,
		Platforms:   set.Slice(),
		Tier:        tier,
	}, true
}

// platforms maps store platform names. Unknown names are dropped.
func platforms(raw []string) *provider.PlatformSet {
	set := provider.NewPlatformSet()
	for _, r := range raw {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "pc", "windows":
			set.Add(provider.PlatformPC)
		case "xbox", "xbox one", "xbox series x|s", "xbox series":
			set.Add(provider.PlatformXbox)
		case "playstation", "ps4", "ps5", "playstation 4", "playstation 5":
			set.Add(provider.PlatformConsole)
		case "switch", "nintendo switch":
			set.Add(provider.PlatformSwitch)
		case "luna", "stadia", "cloud":
			set.Add(provider.PlatformCloud)
		}
	}
	return set
}
