package backup

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glintcare/glintcare/internal/platform/httpx"
	"github.com/glintcare/glintcare/internal/rbac"
	"github.com/glintcare/glintcare/internal/shared"
)

// Handler exposes backup endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBackupsView))
		r.Get("/", h.list)
		r.Get("/*", h.fetch)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBackupsRun))
		r.Post("/run", h.run)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	archives, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("backup list", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"archives": archives})
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "archive key required")
		return
	}
	payload, err := h.service.Fetch(r.Context(), key)
	if err != nil {
		h.logger.Error("backup fetch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.Run(r.Context())
	if err != nil {
		h.logger.Error("backup run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"key": key})
}
