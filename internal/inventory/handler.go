package inventory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vlxd-erp/vlxd-erp/internal/shared"
)

// Handler manages material HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/receive", h.receive)
	r.Post("/{id}/adjust", h.adjust)
	r.Get("/{id}/movements", h.movements)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{Limit: 50}
	if s := r.URL.Query().Get("search"); s != "" {
		req.Search = &s
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	req.Offset = shared.NewPagination(page, req.Limit, 0).Offset()

	materials, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, "list materials", err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"materials":  materials,
		"pagination": shared.NewPagination(page, req.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, "get material", err)
		return
	}
	h.respond(w, http.StatusOK, m)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateMaterialInput
	if !h.decode(w, r, &input) {
		return
	}
	m, err := h.service.CreateMaterial(r.Context(), input)
	if err != nil {
		h.fail(w, "create material", err)
		return
	}
	h.respond(w, http.StatusCreated, m)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var input UpdateMaterialInput
	if !h.decode(w, r, &input) {
		return
	}
	m, err := h.service.UpdateMaterial(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update material", err)
		return
	}
	h.respond(w, http.StatusOK, m)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var input ReceiveInput
	if !h.decode(w, r, &input) {
		return
	}
	m, err := h.service.Receive(r.Context(), id, input)
	if err != nil {
		h.fail(w, "receive stock", err)
		return
	}
	h.respond(w, http.StatusOK, m)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var input AdjustInput
	if !h.decode(w, r, &input) {
		return
	}
	m, err := h.service.Adjust(r.Context(), id, input)
	if err != nil {
		h.fail(w, "adjust stock", err)
		return
	}
	h.respond(w, http.StatusOK, m)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), id, limit)
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{"movements": movements})
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid material id")
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

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrDuplicateSKU):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNegativeStock):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, shared.ErrConcurrentModification):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, map[string]string{"error": msg})
}
