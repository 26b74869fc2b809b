package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/masterdata/locations"
	"github.com/kardexlabs/kardex/internal/masterdata/products"
	"github.com/kardexlabs/kardex/internal/movement"
	"github.com/kardexlabs/kardex/internal/transfer"
	"github.com/kardexlabs/kardex/internal/units"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	MovementHandler  *movement.Handler
	TransferHandler  *transfer.Handler
	LedgerHandler    *ledger.Handler
	KardexHandler    *kardex.Handler
	UnitsHandler     *units.Handler
	ProductsHandler  *products.Handler
	LocationsHandler *locations.Handler
}

// NewRouter constructs the chi.Router with default middleware and all module
// routes mounted under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if params.MovementHandler != nil {
			params.MovementHandler.MountRoutes(api)
		}
		if params.TransferHandler != nil {
			params.TransferHandler.MountRoutes(api)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(api)
		}
		if params.KardexHandler != nil {
			params.KardexHandler.MountRoutes(api)
		}
		if params.UnitsHandler != nil {
			params.UnitsHandler.MountRoutes(api)
		}
		if params.ProductsHandler != nil {
			params.ProductsHandler.MountRoutes(api)
		}
		if params.LocationsHandler != nil {
			params.LocationsHandler.MountRoutes(api)
		}
	})

	return r
}
