// AngelaMos | 2026
// handler.go

package availability

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/middleware"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the public queries behind optional auth and the
// per-user count behind authenticator.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)

		r.Get("/games/{id}/availability", h.Check)
		r.Get("/catalog/leaving-soon", h.LeavingSoon)
		r.Get("/catalog/coming-soon", h.ComingSoon)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me/available-count", h.Count)
	})
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	result, err := h.engine.CheckAvailability(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToAvailabilityResponse(result))
}

// filter reads ?limit and ?mine. mine=true without a session is rejected.
func filter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	f := Filter{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		f.Limit = limit
	}

	if mine, _ := strconv.ParseBool(r.URL.Query().Get("mine")); mine {
		if !middleware.IsAuthenticated(r.Context()) {
			core.JSONError(w, core.UnauthorizedError("sign in to filter by your subscriptions"))
			return f, false
		}
		f.UserID = middleware.GetUserID(r.Context())
	}

	return f, true
}

func (h *Handler) LeavingSoon(w http.ResponseWriter, r *http.Request) {
	f, ok := filter(w, r)
	if !ok {
		return
	}

	groups, err := h.engine.LeavingSoon(r.Context(), f)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGroupResponseList(groups))
}

func (h *Handler) ComingSoon(w http.ResponseWriter, r *http.Request) {
	f, ok := filter(w, r)
	if !ok {
		return
	}

	groups, err := h.engine.ComingSoon(r.Context(), f)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGroupResponseList(groups))
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.CountAvailableGames(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, CountResponse{Count: count})
}
