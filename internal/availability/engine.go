// AngelaMos | 2026
// engine.go

package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/subscription"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Entries interface {
	ListByGame(ctx context.Context, gameID string) ([]catalog.Entry, error)
	ListByStatus(ctx context.Context, q catalog.ListingQuery) ([]catalog.Listing, error)
	AvailableGameTiers(ctx context.Context, subscriptionID string) ([]catalog.GameTier, error)
}

type Subscriptions interface {
	List(ctx context.Context) ([]subscription.Subscription, error)
	ListHoldings(ctx context.Context, userID string) ([]subscription.UserSubscription, error)
}

type EntryAccess struct {
	Entry         catalog.Entry
	Subscription  *subscription.Subscription
	UserHasAccess bool
}

type Availability struct {
	Available           bool
	InUserSubscriptions bool
	Entries             []EntryAccess
}

// Filter scopes a listing. A non-empty UserID restricts results to the
// user's held subscriptions.
type Filter struct {
	UserID string
	Limit  int
}

// Group is one (game, subscription) pair of a listing with its platforms
// merged.
type Group struct {
	GameID           string
	GameTitle        string
	GameCoverURL     *string
	SubscriptionID   string
	SubscriptionSlug string
	SubscriptionName string
	Tier             string
	Status           catalog.Status
	Date             *time.Time
	Platforms        []string
}

// Engine answers read-only availability questions. Absent data yields
// empty results, never an error.
type Engine struct {
	entries Entries
	subs    Subscriptions
	logger  *slog.Logger
}

func NewEngine(entries Entries, subs Subscriptions, logger *slog.Logger) *Engine {
	return &Engine{
		entries: entries,
		subs:    subs,
		logger:  logger,
	}
}

func (e *Engine) subscriptionIndex(ctx context.Context) (map[string]*subscription.Subscription, error) {
	subs, err := e.subs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	index := make(map[string]*subscription.Subscription, len(subs))
	for i := range subs {
		index[subs[i].ID] = &subs[i]
	}
	return index, nil
}

func (e *Engine) holdings(ctx context.Context, userID string) (map[string]string, error) {
	held := make(map[string]string)
	if userID == "" {
		return held, nil
	}

	list, err := e.subs.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	for _, h := range list {
		held[h.SubscriptionID] = h.Tier
	}
	return held, nil
}

// CheckAvailability reports where gameID can be played and, when userID
// is set, which entries the user's held tiers unlock.
func (e *Engine) CheckAvailability(ctx context.Context, gameID, userID string) (*Availability, error) {
	result := &Availability{Entries: []EntryAccess{}}

	if _, err := uuid.Parse(gameID); err != nil {
		return result, nil
	}

	entries, err := e.entries.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if len(entries) == 0 {
		return result, nil
	}

	index, err := e.subscriptionIndex(ctx)
	if err != nil {
		return nil, err
	}

	held, err := e.holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		access := EntryAccess{Entry: entry, Subscription: index[entry.SubscriptionID]}

		if tier, ok := held[entry.SubscriptionID]; ok && access.Subscription != nil {
			access.UserHasAccess = access.Subscription.Grants(tier, entry.Tier)
		}

		if entry.Status == catalog.StatusAvailable {
			result.Available = true
		}
		if access.UserHasAccess {
			result.InUserSubscriptions = true
		}

		result.Entries = append(result.Entries, access)
	}

	return result, nil
}

// CountAvailableGames counts distinct games with an available entry the
// user's held tiers unlock.
func (e *Engine) CountAvailableGames(ctx context.Context, userID string) (int, error) {
	held, err := e.holdings(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(held) == 0 {
		return 0, nil
	}

	index, err := e.subscriptionIndex(ctx)
	if err != nil {
		return 0, err
	}

	games := make(map[string]struct{})
	for subID, tier := range held {
		sub, ok := index[subID]
		if !ok {
			continue
		}

		pairs, err := e.entries.AvailableGameTiers(ctx, subID)
		if err != nil {
			return 0, fmt.Errorf("count available games: %w", err)
		}
		for _, p := range pairs {
			if sub.Grants(tier, p.Tier) {
				games[p.GameID] = struct{}{}
			}
		}
	}

	return len(games), nil
}

// LeavingSoon lists leaving_soon groups, soonest leaving date first.
func (e *Engine) LeavingSoon(ctx context.Context, f Filter) ([]Group, error) {
	return e.listing(ctx, catalog.StatusLeavingSoon, f)
}

// ComingSoon lists coming_soon groups, soonest available date first.
func (e *Engine) ComingSoon(ctx context.Context, f Filter) ([]Group, error) {
	return e.listing(ctx, catalog.StatusComingSoon, f)
}

func (e *Engine) listing(ctx context.Context, status catalog.Status, f Filter) ([]Group, error) {
	limit := ClampLimit(f.Limit)

	q := catalog.ListingQuery{Status: status, Groups: limit}

	var held map[string]string
	if f.UserID != "" {
		h, err := e.holdings(ctx, f.UserID)
		if err != nil {
			return nil, err
		}
		if len(h) == 0 {
			return []Group{}, nil
		}
		held = h
		for id := range h {
			q.SubscriptionIDs = append(q.SubscriptionIDs, id)
		}
		sort.Strings(q.SubscriptionIDs)
	}

	rows, err := e.entries.ListByStatus(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", status, err)
	}

	groups := groupListings(rows, status, held)
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

type groupKey struct {
	game, sub string
}

func groupListings(rows []catalog.Listing, status catalog.Status, held map[string]string) []Group {
	groups := make([]Group, 0)
	index := make(map[groupKey]int)

	for _, row := range rows {
		if held != nil {
			if _, ok := held[row.SubscriptionID]; !ok {
				continue
			}
		}

		date := row.LeavingDate
		if status == catalog.StatusComingSoon {
			date = row.AvailableDate
		}

		key := groupKey{row.GameID, row.SubscriptionID}
		if i, ok := index[key]; ok {
			g := &groups[i]
			g.Platforms = appendUnique(g.Platforms, row.Platform)
			if earlier(date, g.Date) {
				g.Date = date
			}
			continue
		}

		index[key] = len(groups)
		groups = append(groups, Group{
			GameID:           row.GameID,
			GameTitle:        row.GameTitle,
			GameCoverURL:     row.GameCoverURL,
			SubscriptionID:   row.SubscriptionID,
			SubscriptionSlug: row.SubscriptionSlug,
			SubscriptionName: row.SubscriptionName,
			Tier:             row.Tier,
			Status:           status,
			Date:             date,
			Platforms:        []string{row.Platform},
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return earlier(groups[i].Date, groups[j].Date)
	})

	for i := range groups {
		sort.Strings(groups[i].Platforms)
	}

	return groups
}

// earlier orders dates ascending with nil last.
func earlier(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
