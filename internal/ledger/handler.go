package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kardexlabs/kardex/internal/platform/httpx"
)

// Handler wires HTTP endpoints for balance queries and threshold management.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers balance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances", h.handleList)
	r.Get("/balances/low-stock", h.handleLowStock)
	r.Put("/balances/thresholds", h.handleSetThresholds)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	locationID, err := strconv.ParseInt(q.Get("location_id"), 10, 64)
	if err != nil || locationID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "location_id is required")
		return
	}

	if v := q.Get("product_id"); v != "" {
		productID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || productID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "product_id must be numeric")
			return
		}
		bal, err := h.repo.GetBalance(r.Context(), Key{CompanyID: companyID, LocationID: locationID, ProductID: productID})
		if err != nil {
			h.internal(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, bal)
		return
	}

	balances, err := h.repo.ListByLocation(r.Context(), companyID, locationID)
	if err != nil {
		h.internal(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	balances, err := h.repo.ListBelowMinimum(r.Context(), companyID)
	if err != nil {
		h.internal(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

type thresholdRequest struct {
	CompanyID    int64           `json:"company_id"`
	LocationID   int64           `json:"location_id"`
	ProductID    int64           `json:"product_id"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	MaximumStock decimal.Decimal `json:"maximum_stock"`
}

func (h *Handler) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if req.CompanyID <= 0 || req.LocationID <= 0 || req.ProductID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "company_id, location_id and product_id are required")
		return
	}
	if req.MinimumStock.IsNegative() || req.MaximumStock.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "thresholds must be >= 0")
		return
	}

	key := Key{CompanyID: req.CompanyID, LocationID: req.LocationID, ProductID: req.ProductID}
	if err := h.repo.SetThresholds(r.Context(), key, req.MinimumStock, req.MaximumStock); err != nil {
		h.internal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) internal(w http.ResponseWriter, err error) {
	h.logger.Error("balance request failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
