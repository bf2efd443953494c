// AngelaMos | 2026
// fakes_test.go

package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
	"github.com/gotitgames/catalog/internal/subscription"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type entryKey struct {
	game, sub, platform string
}

// memRepo is an in-memory Repository keyed like catalog_entries.
type memRepo struct {
	mu      sync.Mutex
	entries map[entryKey]*Entry
	titles  map[string]string

	// conflicts makes the next n Upserts fail with ErrDuplicateKey.
	conflicts int
	upserts   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		entries: make(map[entryKey]*Entry),
		titles:  make(map[string]string),
	}
}

func (m *memRepo) Upsert(_ context.Context, e *Entry) (UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	if m.conflicts > 0 {
		m.conflicts--
		return UpsertOutcome{}, fmt.Errorf("upsert: %w", core.ErrDuplicateKey)
	}

	key := entryKey{e.GameID, e.SubscriptionID, e.Platform}
	existing, ok := m.entries[key]
	if !ok {
		cp := *e
		cp.CreatedAt = e.VerifiedAt
		cp.UpdatedAt = e.VerifiedAt
		m.entries[key] = &cp
		return UpsertOutcome{ID: cp.ID, Inserted: true}, nil
	}

	prev := existing.Status
	existing.Tier = e.Tier
	existing.Status = e.Status
	existing.AvailableDate = e.AvailableDate
	existing.LeavingDate = e.LeavingDate
	if e.NativeID != nil {
		existing.NativeID = e.NativeID
	}
	existing.VerifiedAt = e.VerifiedAt
	existing.UpdatedAt = e.VerifiedAt

	return UpsertOutcome{ID: existing.ID, PreviousStatus: prev}, nil
}

func (m *memRepo) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get entry: %w", core.ErrNotFound)
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.ID == id {
			delete(m.entries, k)
			return nil
		}
	}
	return fmt.Errorf("delete entry: %w", core.ErrNotFound)
}

func (m *memRepo) SetStatusByTitle(
	_ context.Context,
	titleContains string,
	status Status,
	date *time.Time,
	subscriptionID *string,
) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(titleContains)
	var out []Entry
	for _, e := range m.entries {
		if !strings.Contains(strings.ToLower(m.titles[e.GameID]), needle) {
			continue
		}
		if subscriptionID != nil && e.SubscriptionID != *subscriptionID {
			continue
		}
		e.Status = status
		if date != nil {
			if status == StatusLeavingSoon {
				e.LeavingDate = date
			} else {
				e.AvailableDate = date
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) ResetTransitional(_ context.Context, subscriptionID *string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if !e.Status.Transitional() {
			continue
		}
		if subscriptionID != nil && e.SubscriptionID != *subscriptionID {
			continue
		}
		e.Status = StatusAvailable
		e.AvailableDate = nil
		e.LeavingDate = nil
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) ListExpiring(_ context.Context, cutoff time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if e.Status != StatusLeavingSoon && e.LeavingDate != nil && e.LeavingDate.Before(cutoff) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRepo) MarkLeavingSoon(_ context.Context, id string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID != id {
			continue
		}
		if e.Status == StatusLeavingSoon || e.LeavingDate == nil || !e.LeavingDate.Before(cutoff) {
			return false, nil
		}
		e.Status = StatusLeavingSoon
		return true, nil
	}
	return false, nil
}

func (m *memRepo) ListByGame(_ context.Context, gameID string) ([]Entry, error) {
	var out []Entry
	for _, e := range m.all() {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) ListByStatus(_ context.Context, q ListingQuery) ([]Listing, error) {
	var out []Listing
	for _, e := range m.all() {
		if e.Status == q.Status {
			out = append(out, Listing{Entry: e, GameTitle: m.titles[e.GameID]})
		}
	}
	return out, nil
}

func (m *memRepo) AvailableGameTiers(_ context.Context, subscriptionID string) ([]GameTier, error) {
	var out []GameTier
	for _, e := range m.all() {
		if e.SubscriptionID == subscriptionID && e.Status == StatusAvailable {
			out = append(out, GameTier{GameID: e.GameID, Tier: e.Tier})
		}
	}
	return out, nil
}

func (m *memRepo) Count(context.Context) (int, error) {
	return len(m.all()), nil
}

func (m *memRepo) CountByStatus(context.Context) (map[Status]int, error) {
	counts := map[Status]int{
		StatusAvailable:   0,
		StatusComingSoon:  0,
		StatusLeavingSoon: 0,
	}
	for _, e := range m.all() {
		counts[e.Status]++
	}
	return counts, nil
}

// memSubscriptions serves the seeded subscriptions with stable ids.
type memSubscriptions struct {
	mu        sync.Mutex
	byID      map[string]*subscription.Subscription
	byIDCalls int
}

func newMemSubscriptions() *memSubscriptions {
	m := &memSubscriptions{byID: make(map[string]*subscription.Subscription)}
	for _, s := range subscription.Seeds() {
		s.ID = "sub-" + s.Slug
		m.byID[s.ID] = &s
	}
	return m
}

func (m *memSubscriptions) GetByID(_ context.Context, id string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byIDCalls++
	s, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptions) GetBySlug(_ context.Context, slug string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
}

func (m *memSubscriptions) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byIDCalls
}

type recordingPublisher struct {
	mu      sync.Mutex
	changed []events.EntryChanged
	fail    bool
}

func (p *recordingPublisher) PublishEntryChanged(_ context.Context, e events.EntryChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker down")
	}
	p.changed = append(p.changed, e)
	return nil
}

func (p *recordingPublisher) PublishSyncCompleted(context.Context, events.SyncCompleted) error {
	return nil
}

func (p *recordingPublisher) entries() []events.EntryChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.EntryChanged(nil), p.changed...)
}
