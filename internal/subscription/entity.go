// AngelaMos | 2026
// entity.go

package subscription

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type Tier struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Tiers is stored as a JSONB array ordered by rank.
type Tiers []Tier

func (t Tiers) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tiers: %w", err)
	}
	return string(b), nil
}

func (t *Tiers) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan tiers: unsupported type %T", src)
	}
	return json.Unmarshal(raw, t)
}

type Subscription struct {
	ID        string    `db:"id"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	Tiers     Tiers     `db:"tiers"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TierRank returns the rank of slug within this subscription. Ranks are
// only comparable between tiers of the same subscription.
func (s *Subscription) TierRank(slug string) (int, bool) {
	for _, tier := range s.Tiers {
		if tier.Slug == slug {
			return tier.Rank, true
		}
	}
	return 0, false
}

func (s *Subscription) HasTier(slug string) bool {
	_, ok := s.TierRank(slug)
	return ok
}

// Grants reports whether holding heldTier gives access to content that
// requires requiredTier. Unknown slugs never grant access.
func (s *Subscription) Grants(heldTier, requiredTier string) bool {
	held, ok := s.TierRank(heldTier)
	if !ok {
		return false
	}
	required, ok := s.TierRank(requiredTier)
	if !ok {
		return false
	}
	return held >= required
}

// UserSubscription is a user's held subscription at a specific tier.
type UserSubscription struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	SubscriptionID   string    `db:"subscription_id"`
	SubscriptionSlug string    `db:"subscription_slug"`
	Tier             string    `db:"tier"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
