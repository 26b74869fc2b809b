package transfer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/movement"
	"github.com/kardexlabs/kardex/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the transfer workflow.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the transfer handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transfer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transfers", h.handleRequest)
	r.Get("/transfers", h.handleList)
	r.Get("/transfers/{transferID}", h.handleGet)
	r.Post("/transfers/{transferID}/approve", h.handleApprove)
	r.Post("/transfers/{transferID}/reject", h.handleReject)
	r.Post("/transfers/{transferID}/ship", h.handleShip)
	r.Post("/transfers/{transferID}/receive", h.handleReceive)
	r.Post("/transfers/{transferID}/cancel", h.handleCancel)
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	var input CreateRequest
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	created, err := h.service.Request(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), companyID, transferID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	filter := ListFilter{CompanyID: companyID, Status: Status(q.Get("status"))}
	if v := q.Get("location_id"); v != "" {
		filter.LocationID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	transfers, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transfers)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	t, err := h.service.Approve(r.Context(), companyID, transferID, req)
	h.respond(w, r, t, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	t, err := h.service.Reject(r.Context(), companyID, transferID, req)
	h.respond(w, r, t, err)
}

func (h *Handler) handleShip(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req ShipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	t, err := h.service.Ship(r.Context(), companyID, transferID, req)
	h.respond(w, r, t, err)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req ReceiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	t, err := h.service.Receive(r.Context(), companyID, transferID, req)
	h.respond(w, r, t, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	companyID, transferID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	t, err := h.service.Cancel(r.Context(), companyID, transferID, req)
	h.respond(w, r, t, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, t Transfer, err error) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (companyID, transferID int64, ok bool) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return 0, 0, false
	}
	transferID, err = strconv.ParseInt(chi.URLParam(r, "transferID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "transfer id must be numeric")
		return 0, 0, false
	}
	return companyID, transferID, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidState *InvalidStateError
		insufficient *ledger.InsufficientStockError
		notFound     *movement.ProductNotFoundError
		validation   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &notFound):
		httpx.Problem(w, http.StatusNotFound, "Unknown Product", err.Error())
	case errors.As(err, &invalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrSameLocation), errors.Is(err, ErrNoLines), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrUnknownDetail), errors.Is(err, ErrInvalidReceivedQty), errors.Is(err, ErrInvalidShippedQty),
		errors.Is(err, ErrShipExceedsRequested), errors.Is(err, ErrNothingToShip), errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("transfer request failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
