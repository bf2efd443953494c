// AngelaMos | 2026
// dto.go

package catalog

import (
	"time"
)

type UpsertEntryRequest struct {
	GameID        string     `json:"game_id" validate:"required,uuid"`
	Subscription  string     `json:"subscription" validate:"required,min=1,max=50"`
	Platform      string     `json:"platform" validate:"required,oneof=pc console ps4 ps5 xbox switch cloud"`
	Tier          string     `json:"tier" validate:"required,min=1,max=50"`
	Status        string     `json:"status" validate:"required,oneof=available coming_soon leaving_soon"`
	AvailableDate *time.Time `json:"available_date"`
	LeavingDate   *time.Time `json:"leaving_date"`
	NativeID      string     `json:"native_id" validate:"max=200"`
}

func (r UpsertEntryRequest) ToInput() UpsertInput {
	return UpsertInput{
		GameID:           r.GameID,
		SubscriptionSlug: r.Subscription,
		Platform:         r.Platform,
		Tier:             r.Tier,
		Status:           Status(r.Status),
		AvailableDate:    r.AvailableDate,
		LeavingDate:      r.LeavingDate,
		NativeID:         r.NativeID,
	}
}

type OverrideRequest struct {
	TitleContains string     `json:"title_contains" validate:"required,min=2,max=200"`
	Status        string     `json:"status" validate:"required,oneof=coming_soon leaving_soon"`
	Date          *time.Time `json:"date"`
	Subscription  string     `json:"subscription" validate:"max=50"`
}

func (r OverrideRequest) ToInput() OverrideInput {
	return OverrideInput{
		TitleContains:    r.TitleContains,
		Status:           Status(r.Status),
		Date:             r.Date,
		SubscriptionSlug: r.Subscription,
	}
}

type ResetRequest struct {
	Subscription string `json:"subscription" validate:"max=50"`
}

type UpsertEntryResponse struct {
	EntryID        string `json:"entry_id"`
	Created        bool   `json:"created"`
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previous_status,omitempty"`
}

type AffectedResponse struct {
	Affected int `json:"affected"`
}
