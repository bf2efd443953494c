// AngelaMos | 2026
// handler.go

package catalog

import (
	"errors"
	"net/http"

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

// RegisterAdminRoutes expects r to already be behind admin authorization.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/catalog/entries", h.UpsertEntry)
	r.Delete("/catalog/entries/{id}", h.RemoveEntry)
	r.Post("/catalog/overrides", h.Override)
	r.Post("/catalog/reset", h.Reset)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.JSONError(w, err)
	}
}

func (h *Handler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	var req UpsertEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Upsert(r.Context(), req.ToInput())
	if err != nil {
		writeError(w, err, "subscription")
		return
	}

	resp := UpsertEntryResponse{
		EntryID:        res.EntryID,
		Created:        res.Created,
		Status:         res.Status,
		PreviousStatus: res.PreviousStatus,
	}
	if res.Created {
		core.Created(w, resp)
		return
	}
	core.OK(w, resp)
}

func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "catalog entry")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	affected, err := h.service.SetStatusByTitle(r.Context(), req.ToInput())
	if err != nil {
		writeError(w, err, "subscription")
		return
	}

	core.OK(w, AffectedResponse{Affected: affected})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	affected, err := h.service.ResetTransitional(r.Context(), req.Subscription)
	if err != nil {
		writeError(w, err, "subscription")
		return
	}

	core.OK(w, AffectedResponse{Affected: affected})
}
