package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/medilink/medilink/internal/auth"
	"github.com/medilink/medilink/internal/catalog"
	"github.com/medilink/medilink/internal/inventory"
	"github.com/medilink/medilink/internal/masterdata"
	"github.com/medilink/medilink/internal/notify"
	"github.com/medilink/medilink/internal/observability"
	"github.com/medilink/medilink/internal/procurement"
	"github.com/medilink/medilink/internal/settlement"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     auth.Middleware
	AuthHandler        *auth.Handler
	CatalogHandler     *catalog.Handler
	MasterDataHandler  *masterdata.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	SettlementHandler  *settlement.Handler
	NotifyHandler      *notify.Handler
	WSHandler          *notify.WSHandler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router for both portals. Portal scoping lives
// here: everything under /api/hospital requires a hospital token, everything
// under /api/supplier a supplier token, and shared reads accept either.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		// Reads shared by both portals.
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAny())
			params.CatalogHandler.MountReadRoutes(r)
			params.MasterDataHandler.MountRoutes(r)
			params.NotifyHandler.MountRoutes(r)
		})

		r.Route("/hospital", func(r chi.Router) {
			r.Use(params.AuthMiddleware.Require(auth.ScopeHospital))
			params.CatalogHandler.MountWriteRoutes(r)
			params.InventoryHandler.MountHospitalRoutes(r)
			params.ProcurementHandler.MountHospitalRoutes(r)
			params.SettlementHandler.MountHospitalRoutes(r)
		})

		r.Route("/supplier", func(r chi.Router) {
			r.Use(params.AuthMiddleware.Require(auth.ScopeSupplier))
			params.InventoryHandler.MountSupplierRoutes(r)
			params.ProcurementHandler.MountSupplierRoutes(r)
			params.SettlementHandler.MountSupplierRoutes(r)
		})
	})

	if params.WSHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAny())
			r.Get("/ws", params.WSHandler.ServeHTTP)
		})
	}

	return r
}
