// AngelaMos | 2026
// eaplay.go

package xbox

import (
	"context"
	"log/slog"

	"github.com/gotitgames/catalog/internal/provider"
)

const (
	EAPlayName = "eaplay"
	EAPlayTier = "standard"
)

// EAPlay lists the EA Play collection of the Microsoft Store. Titles that
// are not part of the base Game Pass collections are flagged DualListed so
// the sync driver also records them under the companion subscription.
type EAPlay struct {
	client *Client
	logger *slog.Logger
}

func NewEAPlay(client *Client, logger *slog.Logger) *EAPlay {
	return &EAPlay{
		client: client,
		logger: logger.With("provider", EAPlayName),
	}
}

func (e *EAPlay) Name() string {
	return EAPlayName
}

func (e *EAPlay) Subscription() string {
	return EAPlayName
}

func (e *EAPlay) Fetch(ctx context.Context, params provider.Params) *provider.Stream {
	return provider.NewStream(params, func(_ *provider.Stream, yield func(provider.Record, error) bool) {
		ids, err := e.client.CollectionIDs(ctx, CollectionEAPlay)
		if err != nil {
			yield(provider.Record{}, err)
			return
		}

		if params.Limit > 0 && len(ids) > params.Limit {
			ids = ids[:params.Limit]
		}

		base, err := e.client.listing(ctx, []collection{
			{id: CollectionAllConsole, platform: provider.PlatformConsole},
			{id: CollectionPC, platform: provider.PlatformPC},
		})
		if err != nil {
			e.logger.Warn("base game pass listing unavailable, no titles flagged dual listed",
				"error", err,
			)
			base = nil
		}

		e.client.stream(ctx, ids, yield, func(p Product) (provider.Record, bool) {
			rec, ok := ToRecord(p)
			rec.Tier = EAPlayTier
			if base != nil {
				_, inBase := base.membership[p.ProductID]
				rec.DualListed = !inBase
			}
			return rec, ok
		})
	})
}
