// AngelaMos | 2026
// dto.go

package availability

import (
	"time"

	"github.com/gotitgames/catalog/internal/catalog"
)

type TierResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type EntryResponse struct {
	ID               string         `json:"id"`
	SubscriptionSlug string         `json:"subscription"`
	SubscriptionName string         `json:"subscription_name"`
	Color            string         `json:"color,omitempty"`
	Platform         string         `json:"platform"`
	Tier             *TierResponse  `json:"tier,omitempty"`
	Status           catalog.Status `json:"status"`
	AvailableDate    *time.Time     `json:"available_date,omitempty"`
	LeavingDate      *time.Time     `json:"leaving_date,omitempty"`
	UserHasAccess    bool           `json:"user_has_access"`
}

type AvailabilityResponse struct {
	Available           bool            `json:"available"`
	InUserSubscriptions bool            `json:"in_user_subscriptions"`
	Entries             []EntryResponse `json:"entries"`
}

type GroupResponse struct {
	GameID       string         `json:"game_id"`
	Title        string         `json:"title"`
	CoverURL     *string        `json:"cover_url,omitempty"`
	Subscription string         `json:"subscription"`
	Name         string         `json:"subscription_name"`
	Tier         string         `json:"tier"`
	Status       catalog.Status `json:"status"`
	Date         *time.Time     `json:"date,omitempty"`
	Platforms    []string       `json:"platforms"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func ToAvailabilityResponse(a *Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		Available:           a.Available,
		InUserSubscriptions: a.InUserSubscriptions,
		Entries:             make([]EntryResponse, 0, len(a.Entries)),
	}

	for _, ea := range a.Entries {
		er := EntryResponse{
			ID:            ea.Entry.ID,
			Platform:      ea.Entry.Platform,
			Status:        ea.Entry.Status,
			AvailableDate: ea.Entry.AvailableDate,
			LeavingDate:   ea.Entry.LeavingDate,
			UserHasAccess: ea.UserHasAccess,
		}
		if sub := ea.Subscription; sub != nil {
			er.SubscriptionSlug = sub.Slug
			er.SubscriptionName = sub.Name
			er.Color = sub.Color
			for _, t := range sub.Tiers {
				if t.Slug == ea.Entry.Tier {
					er.Tier = &TierResponse{Slug: t.Slug, Name: t.Name, Rank: t.Rank}
				}
			}
		}
		resp.Entries = append(resp.Entries, er)
	}

	return resp
}

func ToGroupResponseList(groups []Group) []GroupResponse {
	out := make([]GroupResponse, len(groups))
	for i, g := range groups {
		out[i] = GroupResponse{
			GameID:       g.GameID,
			Title:        g.GameTitle,
			CoverURL:     g.GameCoverURL,
			Subscription: g.SubscriptionSlug,
			Name:         g.SubscriptionName,
			Tier:         g.Tier,
			Status:       g.Status,
			Date:         g.Date,
			Platforms:    g.Platforms,
		}
	}
	return out
}
