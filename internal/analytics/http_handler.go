package analytics

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bookstore/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{service: service, logger: logger}
}

// TopBooks handles GET /api/analytics/topbooks
func (h *HTTPHandler) TopBooks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.TopBooks(r.Context(), r.URL.Query().Get("genre"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, out, map[string]any{"count": len(out)})
}

// UserPatterns handles GET /api/analytics/userpatterns
func (h *HTTPHandler) UserPatterns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.UserPatterns(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, out, map[string]any{"count": len(out)})
}

// SalesTrends handles GET /api/analytics/salestrends
func (h *HTTPHandler) SalesTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.service.SalesTrends(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, out, map[string]any{"count": len(out)})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInvalidRange) {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "from and to must be YYYY-MM with from <= to", nil)
		return
	}
	h.logger.ErrorContext(r.Context(), "analytics query failed", "path", r.URL.Path, "error", err)
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
