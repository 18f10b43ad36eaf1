package loyalty

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glintcare/glintcare/internal/platform/httpx"
	"github.com/glintcare/glintcare/internal/rbac"
	"github.com/glintcare/glintcare/internal/shared"
)

// Handler manages loyalty endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers loyalty routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLoyaltyView))
		r.Get("/customers/{id}/summary", h.summary)
		r.Get("/customers/{id}/history", h.history)
		r.Get("/customers/{id}/eligibility", h.eligibility)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermLoyaltyAdjust))
		r.Post("/adjustments", h.adjust)
		r.Post("/refresh-tiers", h.refreshTiers)
		r.Get("/reconciliation", h.reconcile)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	summary, err := h.service.Summary(r.Context(), customerID)
	if err != nil {
		h.logger.Error("loyalty summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.History(r.Context(), customerID, limit, offset)
	if err != nil {
		h.logger.Error("loyalty history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	eligibility, err := h.service.CheckRedemption(r.Context(), customerID)
	if err != nil {
		h.logger.Error("loyalty eligibility", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eligibility)
}

type adjustRequest struct {
	CustomerID int64  `json:"customer_id"`
	Points     int64  `json:"points"`
	Note       string `json:"note"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	entry, err := h.service.Adjust(r.Context(), AdjustmentInput{
		CustomerID: req.CustomerID,
		Points:     req.Points,
		Note:       req.Note,
		CreatedBy:  shared.ActorID(r.Context()),
	})
	if err != nil {
		h.logger.Error("loyalty adjust", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) refreshTiers(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.RefreshTiers(r.Context())
	if err != nil {
		h.logger.Error("loyalty refresh tiers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.logger.Error("loyalty reconcile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"drift": drifts})
}
