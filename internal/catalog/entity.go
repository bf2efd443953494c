// AngelaMos | 2026
// entity.go

package catalog

import (
	"time"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusComingSoon  Status = "coming_soon"
	StatusLeavingSoon Status = "leaving_soon"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusComingSoon, StatusLeavingSoon:
		return true
	}
	return false
}

// Transitional reports whether s is one of the temporary states an
// administrator can reset.
func (s Status) Transitional() bool {
	return s == StatusComingSoon || s == StatusLeavingSoon
}

// Entry is the availability fact for one game on one subscription and
// platform. (GameID, SubscriptionID, Platform) is unique.
type Entry struct {
	ID             string     `db:"id"`
	GameID         string     `db:"game_id"`
	SubscriptionID string     `db:"subscription_id"`
	Tier           string     `db:"tier"`
	Platform       string     `db:"platform"`
	Status         Status     `db:"status"`
	AvailableDate  *time.Time `db:"available_date"`
	LeavingDate    *time.Time `db:"leaving_date"`
	NativeID       *string    `db:"native_id"`
	VerifiedAt     time.Time  `db:"verified_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Listing is an entry joined with the display fields of its game and
// subscription.
type Listing struct {
	Entry
	GameTitle        string  `db:"game_title"`
	GameCoverURL     *string `db:"game_cover_url"`
	SubscriptionSlug string  `db:"subscription_slug"`
	SubscriptionName string  `db:"subscription_name"`
}

// ListingQuery selects listings of one status. Groups caps the number of
// distinct (game, subscription) pairs returned; zero means no cap. An
// empty SubscriptionIDs matches every subscription.
type ListingQuery struct {
	Status          Status
	SubscriptionIDs []string
	Groups          int
}

// GameTier is one available (game, required tier) pair of a subscription.
type GameTier struct {
	GameID string `db:"game_id"`
	Tier   string `db:"tier"`
}

// UpsertOutcome reports what a keyed upsert did.
type UpsertOutcome struct {
	ID             string `db:"id"`
	Inserted       bool   `db:"inserted"`
	PreviousStatus Status `db:"previous_status"`
}
