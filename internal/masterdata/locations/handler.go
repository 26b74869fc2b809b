package locations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kardexlabs/kardex/internal/masterdata/shared"
	"github.com/kardexlabs/kardex/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the location master.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers location routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/locations", h.handleList)
	r.Post("/locations", h.handleCreate)
	r.Get("/locations/{locationID}", h.handleGet)
	r.Put("/locations/{locationID}", h.handleUpdate)
	r.Delete("/locations/{locationID}", h.handleDeactivate)
}

type listResponse struct {
	Items []Location `json:"items"`
	Total int        `json:"total"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	filters := shared.ListFilters{CompanyID: companyID, Search: q.Get("search")}
	if v := q.Get("is_active"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	l, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var l Location
	if err := httpx.DecodeJSON(r, &l); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	created, err := h.service.Create(r.Context(), l)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	var l Location
	if err := httpx.DecodeJSON(r, &l); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	l.CompanyID = companyID
	l.ID = id
	if err := h.service.Update(r.Context(), l); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.ids(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), companyID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (companyID, id int64, ok bool) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return 0, 0, false
	}
	id, err = strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "location id must be numeric")
		return 0, 0, false
	}
	return companyID, id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("location request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	}
}
