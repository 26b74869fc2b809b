package kardex

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kardexlabs/kardex/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock history.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs the kardex handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers kardex routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kardex", h.handleHistory)
	r.Get("/kardex/verify", h.handleVerify)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.History(r.Context(), filter)
	if err != nil {
		h.internal(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	inconsistency, err := h.repo.VerifyChain(r.Context(), filter.CompanyID, filter.LocationID, filter.ProductID)
	if err != nil {
		h.internal(w, err)
		return
	}
	if inconsistency == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"consistent": true})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"consistent": false,
		"entry_id":   inconsistency.EntryID,
		"expected":   inconsistency.Expected,
		"got":        inconsistency.Got,
	})
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	var filter Filter
	var err error
	filter.CompanyID, err = strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil || filter.CompanyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return Filter{}, false
	}
	filter.LocationID, err = strconv.ParseInt(q.Get("location_id"), 10, 64)
	if err != nil || filter.LocationID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "location_id is required")
		return Filter{}, false
	}
	filter.ProductID, err = strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || filter.ProductID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "product_id is required")
		return Filter{}, false
	}
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = ts.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	return filter, true
}

func (h *Handler) internal(w http.ResponseWriter, err error) {
	h.logger.Error("kardex request failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
