package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/glintcare/glintcare/internal/backup"
	"github.com/glintcare/glintcare/internal/customers"
	"github.com/glintcare/glintcare/internal/identity"
	"github.com/glintcare/glintcare/internal/invoices"
	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/observability"
	"github.com/glintcare/glintcare/internal/payments"
	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/rbac"
	"github.com/glintcare/glintcare/internal/redemptions"
	"github.com/glintcare/glintcare/internal/reports"
	"github.com/glintcare/glintcare/internal/returns"
	"github.com/glintcare/glintcare/internal/settings"
	"github.com/glintcare/glintcare/internal/users"
	"github.com/glintcare/glintcare/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Identity *identity.Middleware
	Metrics  *observability.Metrics

	CustomersHandler   *customers.Handler
	ProductsHandler    *products.Handler
	InvoicesHandler    *invoices.Handler
	PaymentsHandler    *payments.Handler
	LoyaltyHandler     *loyalty.Handler
	RedemptionsHandler *redemptions.Handler
	ReturnsHandler     *returns.Handler
	ReportsHandler     *reports.Handler
	RolesHandler       *rbac.Handler
	UsersHandler       *users.Handler
	SettingsHandler    *settings.Handler
	BackupHandler      *backup.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Glint defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Identity: params.Identity,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		mount := func(pattern string, h interface{ MountRoutes(chi.Router) }) {
			r.Route(pattern, h.MountRoutes)
		}
		if params.CustomersHandler != nil {
			mount("/customers", params.CustomersHandler)
		}
		if params.ProductsHandler != nil {
			mount("/products", params.ProductsHandler)
		}
		if params.InvoicesHandler != nil {
			mount("/invoices", params.InvoicesHandler)
		}
		if params.PaymentsHandler != nil {
			mount("/payments", params.PaymentsHandler)
		}
		if params.LoyaltyHandler != nil {
			mount("/loyalty", params.LoyaltyHandler)
		}
		if params.RedemptionsHandler != nil {
			mount("/redemptions", params.RedemptionsHandler)
		}
		if params.ReturnsHandler != nil {
			mount("/returns", params.ReturnsHandler)
		}
		if params.ReportsHandler != nil {
			mount("/reports", params.ReportsHandler)
		}
		if params.RolesHandler != nil {
			mount("/roles", params.RolesHandler)
		}
		if params.UsersHandler != nil {
			mount("/users", params.UsersHandler)
		}
		if params.SettingsHandler != nil {
			mount("/settings", params.SettingsHandler)
		}
		if params.BackupHandler != nil {
			mount("/backups", params.BackupHandler)
		}
		if params.JobsHandler != nil {
			mount("/jobs", params.JobsHandler)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
