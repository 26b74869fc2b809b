package movement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/platform/httpx"
	"github.com/kardexlabs/kardex/internal/shared"
)

// Handler wires HTTP endpoints for movement posting and lookup.
type Handler struct {
	logger *slog.Logger
	engine *Engine
	repo   *Repository
}

// NewHandler constructs the movement handler.
func NewHandler(logger *slog.Logger, engine *Engine, repo *Repository) *Handler {
	return &Handler{logger: logger, engine: engine, repo: repo}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.handleProcess)
	r.Get("/movements", h.handleList)
	r.Get("/movements/{movementID}", h.handleGet)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var input ProcessInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		input.IdempotencyKey = key
	}

	posted, err := h.engine.ProcessMovement(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, posted)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	movementID, err := strconv.ParseInt(chi.URLParam(r, "movementID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "movement id must be numeric")
		return
	}

	m, err := h.repo.Get(r.Context(), companyID, movementID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id is required")
		return
	}
	filter := ListFilter{CompanyID: companyID, Type: Type(q.Get("type"))}
	if v := q.Get("location_id"); v != "" {
		filter.LocationID, _ = strconv.ParseInt(v, 10, 64)
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

	movements, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		insufficient *ledger.InsufficientStockError
		notFound     *ProductNotFoundError
		validation   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &notFound):
		httpx.Problem(w, http.StatusNotFound, "Unknown Product", err.Error())
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrInvalidMovementType), errors.Is(err, ErrInvalidReason), errors.Is(err, ErrNoLines),
		errors.Is(err, ledger.ErrInvalidQuantity), errors.Is(err, ledger.ErrInvalidUnitCost), errors.As(err, &validation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("movement request failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
