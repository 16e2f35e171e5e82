package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler serves the dashboard report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/revenue", h.revenue)
	r.Get("/top-materials", h.topMaterials)
	r.Get("/statuses", h.statuses)
	r.Get("/low-stock", h.lowStock)
}

// parseRange reads from/to query params, defaulting to the last 30 days.
func parseRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if s := r.URL.Query().Get("from"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			from = t
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			to = t.AddDate(0, 0, 1)
		}
	}
	return from, to
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	summary, err := h.service.Revenue(r.Context(), from, to)
	if err != nil {
		h.fail(w, "revenue summary", err)
		return
	}
	h.respond(w, summary)
}

func (h *Handler) topMaterials(w http.ResponseWriter, r *http.Request) {
	from, to := parseRange(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.service.TopMaterials(r.Context(), from, to, limit)
	if err != nil {
		h.fail(w, "top materials", err)
		return
	}
	h.respond(w, map[string]interface{}{"materials": top})
}

func (h *Handler) statuses(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.Statuses(r.Context())
	if err != nil {
		h.fail(w, "status breakdown", err)
		return
	}
	h.respond(w, breakdown)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.LowStock(r.Context())
	if err != nil {
		h.fail(w, "low stock", err)
		return
	}
	h.respond(w, map[string]interface{}{"materials": materials})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

func (h *Handler) respond(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}
