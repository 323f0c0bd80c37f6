package book

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookstore/internal/enrichment"
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

// List handles GET /api/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	params := Query{
		Genre:  query.Get("genre"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if books == nil {
		books = []Book{}
	}

	httpx.JSONSuccess(w, r, books, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	})
}

// GetByID handles GET /api/books/{id}
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// GetExternal handles GET /api/books/{id}/external
func (h *HTTPHandler) GetExternal(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ExternalDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, details, nil)
}

// Convert handles GET /api/books/{id}/convert/{currency}
func (h *HTTPHandler) Convert(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(strings.TrimSpace(r.PathValue("currency")))
	if !httpx.IsCurrencyCode(currency) {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_CURRENCY", "Unsupported currency code", []httpx.ErrorDetail{
			{Field: "currency", Message: "currency must be an ISO 4217 currency code"},
		})
		return
	}

	conv, err := h.service.Convert(r.Context(), r.PathValue("id"), currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, conv, nil)
}

// UpdateStockPrice handles PUT /api/books/sp/{id}
func (h *HTTPHandler) UpdateStockPrice(w http.ResponseWriter, r *http.Request) {
	var in StockPriceUpdate
	if !decodeAndValidate(w, r, &in) {
		return
	}

	b, err := h.service.UpdateStockAndPrice(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /api/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !decodeAndValidate(w, r, &in) {
		return
	}

	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PUT /api/books/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if !decodeAndValidate(w, r, &p) {
		return
	}
	if p.Empty() {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "No fields to update", nil)
		return
	}

	b, err := h.service.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /api/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"id": id}, nil)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
		return false
	}
	if details := httpx.Validate(dst); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid book input", nil)
	case errors.Is(err, ErrDuplicateISBN):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "A book with this ISBN already exists", nil)
	case errors.Is(err, ErrHasSales):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Book has recorded sales and cannot be deleted", nil)
	case errors.Is(err, enrichment.ErrMetadataNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "No external metadata for this ISBN", nil)
	case errors.Is(err, enrichment.ErrInvalidCurrency):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_CURRENCY", "Unsupported currency code", nil)
	case errors.Is(err, enrichment.ErrUpstreamUnavailable):
		h.logger.WarnContext(r.Context(), "upstream unavailable", "path", r.URL.Path, "error", err)
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "External service unavailable", nil)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
