// AngelaMos | 2026
// scanner_test.go

package expiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotitgames/catalog/internal/catalog"
	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/events"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	entries map[string]*catalog.Entry
	failID  string

	// interfere runs between listing and marking, like a concurrent
	// reconciliation.
	interfere func(map[string]*catalog.Entry)
}

func newMemStore(entries ...catalog.Entry) *memStore {
	m := &memStore{entries: make(map[string]*catalog.Entry)}
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
	}
	return m
}

func (m *memStore) ListExpiring(_ context.Context, cutoff time.Time) ([]catalog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []catalog.Entry
	for _, e := range m.entries {
		if e.Status != catalog.StatusLeavingSoon && e.LeavingDate != nil && e.LeavingDate.Before(cutoff) {
			out = append(out, *e)
		}
	}
	if m.interfere != nil {
		m.interfere(m.entries)
	}
	return out, nil
}

func (m *memStore) MarkLeavingSoon(_ context.Context, id string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.failID {
		return false, errors.New("write failed")
	}
	e, ok := m.entries[id]
	if !ok || e.Status == catalog.StatusLeavingSoon || e.LeavingDate == nil || !e.LeavingDate.Before(cutoff) {
		return false, nil
	}
	e.Status = catalog.StatusLeavingSoon
	return true, nil
}

func (m *memStore) status(id string) catalog.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id].Status
}

type countingPublisher struct {
	mu      sync.Mutex
	changed []events.EntryChanged
}

func (p *countingPublisher) PublishEntryChanged(_ context.Context, e events.EntryChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return nil
}

func (p *countingPublisher) PublishSyncCompleted(context.Context, events.SyncCompleted) error {
	return nil
}

func days(n int) *time.Time {
	t := now.Add(time.Duration(n) * 24 * time.Hour)
	return &t
}

func entry(id string, status catalog.Status, leaving *time.Time) catalog.Entry {
	return catalog.Entry{
		ID:             id,
		GameID:         "game-" + id,
		SubscriptionID: "sub-gamepass",
		Platform:       "pc",
		Tier:           "standard",
		Status:         status,
		LeavingDate:    leaving,
	}
}

func newScanner(store Store, pub events.Publisher) *Scanner {
	return NewScanner(
		store,
		pub,
		core.NewFakeClock(now),
		config.ExpiryConfig{Window: DefaultWindow},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestScanPromotesEntriesInsideWindow(t *testing.T) {
	store := newMemStore(
		entry("soon", catalog.StatusAvailable, days(3)),
		entry("upcoming", catalog.StatusComingSoon, days(13)),
		entry("later", catalog.StatusAvailable, days(30)),
		entry("edge", catalog.StatusAvailable, days(14)),
		entry("steady", catalog.StatusAvailable, nil),
	)
	pub := &countingPublisher{}

	res, err := newScanner(store, pub).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.Add(DefaultWindow), res.Cutoff)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Updated)
	assert.Zero(t, res.Errors)

	assert.Equal(t, catalog.StatusLeavingSoon, store.status("soon"))
	assert.Equal(t, catalog.StatusLeavingSoon, store.status("upcoming"))
	assert.Equal(t, catalog.StatusAvailable, store.status("later"))
	assert.Equal(t, catalog.StatusAvailable, store.status("edge"))
	assert.Equal(t, catalog.StatusAvailable, store.status("steady"))

	require.Len(t, pub.changed, 2)
	for _, e := range pub.changed {
		assert.Equal(t, events.OriginExpiry, e.Origin)
		assert.Equal(t, "leaving_soon", e.Status)
	}
}

func TestScanIsMonotonic(t *testing.T) {
	store := newMemStore(
		entry("soon", catalog.StatusAvailable, days(3)),
		entry("flagged", catalog.StatusLeavingSoon, days(1)),
	)
	scanner := newScanner(store, nil)

	first, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)

	second, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Candidates)
	assert.Zero(t, second.Updated)
	assert.Equal(t, catalog.StatusLeavingSoon, store.status("flagged"))
}

func TestScanSkipsEntryClearedConcurrently(t *testing.T) {
	store := newMemStore(entry("soon", catalog.StatusAvailable, days(3)))
	store.interfere = func(entries map[string]*catalog.Entry) {
		entries["soon"].LeavingDate = nil
	}

	res, err := newScanner(store, nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Updated)
	assert.Equal(t, catalog.StatusAvailable, store.status("soon"))
}

func TestScanCountsEntryFailures(t *testing.T) {
	store := newMemStore(
		entry("a", catalog.StatusAvailable, days(2)),
		entry("b", catalog.StatusAvailable, days(4)),
	)
	store.failID = "a"

	res, err := newScanner(store, nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, catalog.StatusLeavingSoon, store.status("b"))
}

func TestScannerDefaultsWindow(t *testing.T) {
	s := NewScanner(newMemStore(), nil, nil, config.ExpiryConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultWindow, s.Window())
}
