// AngelaMos | 2026
// handler.go

package game

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/gotitgames/catalog/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/games", h.Search)
	r.Get("/games/recent", h.Recent)
	r.Get("/games/{id}", h.Get)
}

// RegisterAdminRoutes expects r to already be behind admin authorization.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/games/import", h.Import)
	r.Post("/games/merge", h.Merge)
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGameResponseList(games))
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.RecentlyAdded(r.Context(), limitParam(r))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGameResponseList(games))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "game")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGameResponse(g))
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	g, res, err := h.service.ImportByTitle(r.Context(), req.Title)
	if err != nil {
		switch {
		case errors.Is(err, ErrEnrichmentDisabled):
			core.JSONError(w, core.ConflictError(err.Error()))
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "game metadata")
		default:
			core.JSONError(w, err)
		}
		return
	}

	resp := ImportResponse{
		Game:      ToGameResponse(g),
		Created:   res.Created,
		MatchedBy: res.MatchedBy,
	}
	if res.Created {
		core.Created(w, resp)
		return
	}
	core.OK(w, resp)
}

func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.Merge(r.Context(), req.KeepID, req.DropID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "game")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, result)
}
