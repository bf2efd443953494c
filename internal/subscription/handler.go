// AngelaMos | 2026
// handler.go

package subscription

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/middleware"
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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/subscriptions", h.List)
	r.Get("/subscriptions/{slug}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me/subscriptions", h.ListMine)
		r.Put("/me/subscriptions/{slug}", h.SetMine)
		r.Delete("/me/subscriptions/{slug}", h.RemoveMine)
	})
}

// RegisterAdminRoutes expects r to already be behind admin authorization.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/subscriptions/{slug}/tiers", h.UpdateTiers)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponseList(subs))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "subscription")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponse(sub))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	holdings, err := h.service.ListHoldings(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHoldingResponseList(holdings))
}

func (h *Handler) SetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SetHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	holding, err := h.service.SetHolding(
		r.Context(),
		userID,
		chi.URLParam(r, "slug"),
		req.Tier,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "subscription")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHoldingResponse(holding))
}

func (h *Handler) RemoveMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	err := h.service.RemoveHolding(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "subscription")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpdateTiers(w http.ResponseWriter, r *http.Request) {
	var req UpdateTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sub, err := h.service.UpdateTiers(
		r.Context(),
		chi.URLParam(r, "slug"),
		req.ToTiers(),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "subscription")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponse(sub))
}
