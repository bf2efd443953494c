// AngelaMos | 2026
// gamepass.go

package xbox

import (
	"context"

	"github.com/gotitgames/catalog/internal/provider"
)

const (
	GamePassName = "gamepass"
	GamePassTier = "standard"
)

// GamePass lists the console and PC Game Pass collections.
type GamePass struct {
	client *Client
}

func NewGamePass(client *Client) *GamePass {
	return &GamePass{client: client}
}

func (g *GamePass) Name() string {
	return GamePassName
}

func (g *GamePass) Subscription() string {
	return GamePassName
}

func (g *GamePass) Fetch(ctx context.Context, params provider.Params) *provider.Stream {
	return provider.NewStream(params, func(_ *provider.Stream, yield func(provider.Record, error) bool) {
		listing, err := g.client.listing(ctx, []collection{
			{id: CollectionAllConsole, platform: provider.PlatformConsole},
			{id: CollectionPC, platform: provider.PlatformPC},
		})
		if err != nil {
			yield(provider.Record{}, err)
			return
		}

		ids := listing.ids
		if params.Limit > 0 && len(ids) > params.Limit {
			ids = ids[:params.Limit]
		}

		g.client.stream(ctx, ids, yield, func(p Product) (provider.Record, bool) {
			rec, ok := ToRecord(p, listing.membership[p.ProductID]...)
			rec.Tier = GamePassTier
			return rec, ok
		})
	})
}

type collection struct {
	id       string
	platform provider.Platform
}

// listing is the ordered union of several collections with the platforms
// each product was seen under.
type listing struct {
	ids        []string
	membership map[string][]provider.Platform
}

func (c *Client) listing(ctx context.Context, collections []collection) (*listing, error) {
	out := &listing{membership: make(map[string][]provider.Platform)}

	for _, coll := range collections {
		ids, err := c.CollectionIDs(ctx, coll.id)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen, ok := out.membership[id]
			if !ok {
				out.ids = append(out.ids, id)
			}
			out.membership[id] = append(seen, coll.platform)
		}
	}

	return out, nil
}

// stream fetches product details in batches and yields mapped records in
// listing order. Products without a title are skipped.
func (c *Client) stream(
	ctx context.Context,
	ids []string,
	yield func(provider.Record, error) bool,
	mapFn func(Product) (provider.Record, bool),
) {
	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))

		products, err := c.Products(ctx, ids[start:end])
		if err != nil {
			yield(provider.Record{}, err)
			return
		}

		for _, p := range products {
			rec, ok := mapFn(p)
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
