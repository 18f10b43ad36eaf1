package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glintcare/glintcare/internal/platform/httpx"
	"github.com/glintcare/glintcare/internal/rbac"
	"github.com/glintcare/glintcare/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/rfm", h.rfm)
		r.Get("/churn-risk", h.churn)
		r.Get("/frequency", h.frequency)
	})
}

func (h *Handler) rfm(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.RFM(r.Context())
	if err != nil {
		h.logger.Error("reports rfm", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) churn(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ChurnRisk(r.Context())
	if err != nil {
		h.logger.Error("reports churn", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) frequency(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Frequency(r.Context())
	if err != nil {
		h.logger.Error("reports frequency", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}
