// AngelaMos | 2026
// service_test.go

package subscription

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/core"
)

type memRepo struct {
	mu       sync.Mutex
	subs     map[string]*Subscription
	holdings map[string]*UserSubscription
}

func newMemRepo() *memRepo {
	return &memRepo{
		subs:     make(map[string]*Subscription),
		holdings: make(map[string]*UserSubscription),
	}
}

func (m *memRepo) List(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) GetBySlug(ctx context.Context, slug string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[slug]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) Create(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.Slug]; ok {
		return core.ErrDuplicateKey
	}
	sub.CreatedAt = time.Now()
	cp := *sub
	m.subs[sub.Slug] = &cp
	return nil
}

func (m *memRepo) UpdateTiers(ctx context.Context, id string, tiers Tiers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ID == id {
			s.Tiers = tiers
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memRepo) UpsertHolding(ctx context.Context, h *UserSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := h.UserID + "/" + h.SubscriptionID
	if existing, ok := m.holdings[key]; ok {
		existing.Tier = h.Tier
		h.ID = existing.ID
		return nil
	}
	cp := *h
	m.holdings[key] = &cp
	return nil
}

func (m *memRepo) DeleteHolding(ctx context.Context, userID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + subscriptionID
	if _, ok := m.holdings[key]; !ok {
		return core.ErrNotFound
	}
	delete(m.holdings, key)
	return nil
}

func (m *memRepo) ListHoldings(ctx context.Context, userID string) ([]UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UserSubscription
	for _, h := range m.holdings {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (m *memRepo) CountHolders(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]struct{})
	for _, h := range m.holdings {
		users[h.UserID] = struct{}{}
	}
	return len(users), nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.subs, 4)

	gp, err := svc.GetBySlug(ctx, SlugGamePass)
	require.NoError(t, err)
	rank, ok := gp.TierRank("ultimate")
	require.True(t, ok)
	assert.Equal(t, 3, rank)
}

func TestGrantsIsRankComparison(t *testing.T) {
	for _, seed := range Seeds() {
		for _, held := range seed.Tiers {
			for _, required := range seed.Tiers {
				assert.Equal(t,
					held.Rank >= required.Rank,
					seed.Grants(held.Slug, required.Slug),
					"%s held=%s required=%s", seed.Slug, held.Slug, required.Slug,
				)
			}
		}
	}

	gp := Seeds()[0]
	assert.False(t, gp.Grants("core", "ultimate"))
	assert.True(t, gp.Grants("ultimate", "core"))
	assert.False(t, gp.Grants("platinum", "core"))
	assert.False(t, gp.Grants("ultimate", "missing"))
}

func TestValidateTiers(t *testing.T) {
	sorted, err := ValidateTiers(Tiers{
		{Slug: "b", Name: "B", Rank: 2},
		{Slug: "a", Name: "A", Rank: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", sorted[0].Slug)

	_, err = ValidateTiers(nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = ValidateTiers(Tiers{{Slug: "a", Rank: 1}, {Slug: "a", Rank: 2}})
	assert.ErrorIs(t, err, ErrInvalidTiers)

	_, err = ValidateTiers(Tiers{{Slug: "a", Rank: 1}, {Slug: "b", Rank: 1}})
	assert.ErrorIs(t, err, ErrInvalidTiers)
}

func TestSetHolding(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	_, err = svc.SetHolding(ctx, "user-1", SlugGamePass, "core")
	require.NoError(t, err)

	_, err = svc.SetHolding(ctx, "user-1", SlugGamePass, "ultimate")
	require.NoError(t, err)

	holdings, err := svc.ListHoldings(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "ultimate", holdings[0].Tier)

	_, err = svc.SetHolding(ctx, "user-1", SlugGamePass, "premium")
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = svc.SetHolding(ctx, "user-1", "stadia", "base")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.RemoveHolding(ctx, "user-1", SlugGamePass))
	assert.ErrorIs(t, svc.RemoveHolding(ctx, "user-1", SlugGamePass), core.ErrNotFound)
}

func TestTiersScan(t *testing.T) {
	var tiers Tiers
	require.NoError(t, tiers.Scan([]byte(`[{"slug":"core","name":"Core","rank":1}]`)))
	require.Len(t, tiers, 1)
	assert.Equal(t, "core", tiers[0].Slug)

	require.NoError(t, tiers.Scan(nil))
	assert.Nil(t, tiers)

	assert.Error(t, tiers.Scan(42))
}
