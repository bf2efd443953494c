// AngelaMos | 2026
// dto.go

package game

import (
	"time"
)

type ImportRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

type MergeRequest struct {
	KeepID string `json:"keep_id" validate:"required,uuid"`
	DropID string `json:"drop_id" validate:"required,uuid"`
}

type GameResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug,omitempty"`
	CoverURL    string            `json:"cover_url,omitempty"`
	ReleaseDate string            `json:"release_date,omitempty"`
	Platforms   []string          `json:"platforms"`
	Description string            `json:"description,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ImportResponse struct {
	Game      GameResponse `json:"game"`
	Created   bool         `json:"created"`
	MatchedBy MatchKind    `json:"matched_by"`
}

func ToGameResponse(g *Game) GameResponse {
	resp := GameResponse{
		ID:          g.ID,
		Title:       g.Title,
		Slug:        deref(g.Slug),
		CoverURL:    deref(g.CoverURL),
		Platforms:   []string(g.Platforms),
		Description: deref(g.Description),
		UpdatedAt:   g.UpdatedAt,
	}
	if resp.Platforms == nil {
		resp.Platforms = []string{}
	}
	if g.ReleaseDate != nil {
		resp.ReleaseDate = g.ReleaseDate.Format(time.DateOnly)
	}

	ids := map[string]string{}
	if g.IGDBID != nil {
		ids["igdb"] = g.ExternalID("igdb")
	}
	if g.RAWGID != nil {
		ids["rawg"] = g.ExternalID("rawg")
	}
	if g.MSStoreID != nil {
		ids["ms_store"] = *g.MSStoreID
	}
	if g.PSNID != nil {
		ids["psn"] = *g.PSNID
	}
	if g.UbisoftID != nil {
		ids["ubisoft"] = *g.UbisoftID
	}
	if len(ids) > 0 {
		resp.ExternalIDs = ids
	}

	return resp
}

func ToGameResponseList(games []Game) []GameResponse {
	out := make([]GameResponse, 0, len(games))
	for i := range games {
		out = append(out, ToGameResponse(&games[i]))
	}
	return out
}
