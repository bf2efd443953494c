// AngelaMos | 2026
// events.go

package events

import (
	"context"
	"time"
)

const (
	TopicEntryChanged  = "catalog.entry.changed"
	TopicSyncCompleted = "catalog.sync.completed"
)

const (
	OriginReconcile = "reconcile"
	OriginExpiry    = "expiry"
	OriginOverride  = "override"
)

// EntryChanged is emitted when a catalog entry is created or its status
// moves.
type EntryChanged struct {
	EntryID        string    `json:"entry_id"`
	GameID         string    `json:"game_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Platform       string    `json:"platform,omitempty"`
	Tier           string    `json:"tier,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Created        bool      `json:"created"`
	Origin         string    `json:"origin"`
	At             time.Time `json:"at"`
}

// SyncCompleted carries the summary of a finished sync or scan run.
type SyncCompleted struct {
	Job        string    `json:"job"`
	Status     string    `json:"status"`
	Synced     int       `json:"synced"`
	Errors     int       `json:"errors"`
	Total      int       `json:"total"`
	Source     string    `json:"source,omitempty"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Publisher interface {
	PublishEntryChanged(ctx context.Context, e EntryChanged) error
	PublishSyncCompleted(ctx context.Context, e SyncCompleted) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) PublishEntryChanged(context.Context, EntryChanged) error {
	return nil
}

func (Discard) PublishSyncCompleted(context.Context, SyncCompleted) error {
	return nil
}
