package invoices

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vlxd-erp/vlxd-erp/internal/shared"
)

// Handler manages invoice HTTP endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validate    *validator.Validate
	events      EventPublisher
	idempotency *shared.IdempotencyStore
}

// NewHandler creates a new handler. Events and idempotency are optional.
func NewHandler(logger *slog.Logger, service *Service, events EventPublisher, idem *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		validate:    validator.New(),
		events:      events,
		idempotency: idem,
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}/items", h.updateItems)
	r.Post("/{id}/delivery", h.applyDelivery)
	r.Post("/{id}/status", h.setStatus)
	r.Post("/{id}/payments", h.processPayment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{Limit: 20}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := Status(s)
		req.Status = &status
	}
	if s := q.Get("payment_status"); s != "" {
		ps := PaymentStatus(s)
		req.PaymentStatus = &ps
	}
	if s := q.Get("search"); s != "" {
		req.Search = &s
	}
	if s := q.Get("from"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			req.DateFrom = &t
		}
	}
	if s := q.Get("to"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			req.DateTo = &t
		}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	req.Offset = shared.NewPagination(page, req.Limit, 0).Offset()

	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	h.respond(w, http.StatusOK, ListResponse{
		Invoices:   invoices,
		Pagination: shared.NewPagination(page, req.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	inv, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	h.respond(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	h.respond(w, http.StatusCreated, inv)
}

func (h *Handler) updateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req UpdateItemsRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.UpdateItems(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update items", err)
		return
	}
	h.respond(w, http.StatusOK, inv)
}

func (h *Handler) applyDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req DeliveryRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.ApplyDelivery(r.Context(), id, req)
	if err != nil {
		h.fail(w, "apply delivery", err)
		return
	}
	h.publish(r, Event{Type: EventDelivery, Invoice: *inv})
	h.respond(w, http.StatusOK, inv)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.SetStatus(r.Context(), id, req)
	if err != nil {
		h.fail(w, "set status", err)
		return
	}
	h.publish(r, Event{Type: EventStatus, Invoice: *inv})
	h.respond(w, http.StatusOK, inv)
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "invoices.payment"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.respondError(w, http.StatusConflict, err.Error())
				return
			}
			h.fail(w, "idempotency check", err)
			return
		}
	}
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.ProcessPayment(r.Context(), id, req)
	if err != nil {
		h.fail(w, "process payment", err)
		return
	}
	h.publish(r, Event{Type: EventPayment, Invoice: *inv, Amount: req.Amount})
	h.respond(w, http.StatusOK, inv)
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) publish(r *http.Request, evt Event) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(r.Context(), evt); err != nil {
		h.logger.Warn("publish event", slog.String("type", evt.Type), slog.Any("error", err))
	}
}

type errorResponse struct {
	Error      string      `json:"error"`
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
	Problems   []string    `json:"problems,omitempty"`
}

// fail maps domain errors onto HTTP statuses and logs the unexpected.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		h.respondWith(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      stockErr.Error(),
			Shortfalls: stockErr.Shortfalls,
		})
		return
	}
	var editErr *EditValidationError
	if errors.As(err, &editErr) {
		h.respondWith(w, http.StatusUnprocessableEntity, errorResponse{
			Error:    editErr.Error(),
			Problems: editErr.Problems,
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrOverDelivery),
		errors.Is(err, ErrEmptyItems),
		errors.Is(err, ErrItemIndexOutOfRange),
		errors.Is(err, ErrUnknownMaterial):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAmountExceedsRemaining):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, shared.ErrConcurrentModification):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload interface{}) {
	h.respondWith(w, status, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondWith(w, status, errorResponse{Error: msg})
}

func (h *Handler) respondWith(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}
