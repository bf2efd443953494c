// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"
)

type TierRequest struct {
	Slug string `json:"slug" validate:"required,min=1,max=50"`
	Name string `json:"name" validate:"required,min=1,max=100"`
	Rank int    `json:"rank" validate:"min=0,max=1000"`
}

type UpdateTiersRequest struct {
	Tiers []TierRequest `json:"tiers" validate:"required,min=1,max=20,dive"`
}

func (r UpdateTiersRequest) ToTiers() Tiers {
	tiers := make(Tiers, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		tiers = append(tiers, Tier(t))
	}
	return tiers
}

type SetHoldingRequest struct {
	Tier string `json:"tier" validate:"required,min=1,max=50"`
}

type TierResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type SubscriptionResponse struct {
	ID    string         `json:"id"`
	Slug  string         `json:"slug"`
	Name  string         `json:"name"`
	Color string         `json:"color"`
	Tiers []TierResponse `json:"tiers"`
}

type HoldingResponse struct {
	Subscription string    `json:"subscription"`
	Tier         string    `json:"tier"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToSubscriptionResponse(s *Subscription) SubscriptionResponse {
	tiers := make([]TierResponse, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		tiers = append(tiers, TierResponse(t))
	}

	return SubscriptionResponse{
		ID:    s.ID,
		Slug:  s.Slug,
		Name:  s.Name,
		Color: s.Color,
		Tiers: tiers,
	}
}

func ToSubscriptionResponseList(subs []Subscription) []SubscriptionResponse {
	responses := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		responses = append(responses, ToSubscriptionResponse(&subs[i]))
	}
	return responses
}

func ToHoldingResponse(h *UserSubscription) HoldingResponse {
	return HoldingResponse{
		Subscription: h.SubscriptionSlug,
		Tier:         h.Tier,
		UpdatedAt:    h.UpdatedAt,
	}
}

func ToHoldingResponseList(holdings []UserSubscription) []HoldingResponse {
	responses := make([]HoldingResponse, 0, len(holdings))
	for i := range holdings {
		responses = append(responses, ToHoldingResponse(&holdings[i]))
	}
	return responses
}
