package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bookstore/internal/auth"
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

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type roleReq struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=ADMIN SELLER USER"`
}

// Register handles POST /api/users/register
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !h.decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !h.validate(w, r, req) {
		return
	}

	u, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, u)
}

// Login handles POST /api/users/login
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !h.decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !h.validate(w, r, req) {
		return
	}

	tok, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, tok, nil)
}

// AssignRole handles POST /api/users/role. Admin only.
func (h *HTTPHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req roleReq
	if !h.decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if !h.validate(w, r, req) {
		return
	}

	u, err := h.service.AssignRole(r.Context(), req.Username, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "role assigned",
		"username", u.Username, "role", u.Role, "by", httpx.UserIDFrom(r))
	httpx.JSONSuccess(w, r, u, nil)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return false
	}
	return true
}

func (h *HTTPHandler) validate(w http.ResponseWriter, r *http.Request, req any) bool {
	if details := httpx.Validate(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "Username already exists", nil)
	case errors.Is(err, ErrInvalidCredentials):
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	case errors.Is(err, ErrInvalidRole):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be one of "+
			strings.Join([]string{auth.RoleAdmin, auth.RoleSeller, auth.RoleUser}, ", "), nil)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
