package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookstore/internal/analytics"
	"bookstore/internal/auth"
	"bookstore/internal/book"
	"bookstore/internal/httpx"
	"bookstore/internal/notify"
	"bookstore/internal/user"
)

const maxRequestBody = 1 << 20

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	books       *book.HTTPHandler
	users       *user.HTTPHandler
	reports     *analytics.HTTPHandler
	subscribers *notify.HTTPHandler
	limiter     *httpx.RateLimiter
	db          pinger
	jwtSecret   string
	enableHSTS  bool
	logger      *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// protected requires a valid token carrying one of roles.
	protected := func(h http.HandlerFunc, roles ...string) http.Handler {
		return httpx.Chain(h,
			httpx.AuthMiddleware(d.jwtSecret),
			httpx.RequireRoles(roles...),
			httpx.RequestSizeLimitMiddleware(maxRequestBody),
		)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return httpx.RequestSizeLimitMiddleware(maxRequestBody)(h)
	}

	router.HandleFunc("GET /api/books", d.books.List)
	router.HandleFunc("GET /api/books/{id}", d.books.GetByID)
	router.HandleFunc("GET /api/books/{id}/external", d.books.GetExternal)
	router.HandleFunc("GET /api/books/{id}/convert/{currency}", d.books.Convert)
	router.Handle("POST /api/books", protected(d.books.Create, auth.RoleAdmin, auth.RoleSeller))
	router.Handle("PUT /api/books/{id}", protected(d.books.Update, auth.RoleAdmin, auth.RoleSeller))
	router.Handle("DELETE /api/books/{id}", protected(d.books.Delete, auth.RoleAdmin))
	router.Handle("PUT /api/books/sp/{id}", protected(d.books.UpdateStockPrice, auth.RoleAdmin, auth.RoleSeller))

	router.Handle("POST /api/users/register", limited(d.users.Register))
	router.Handle("POST /api/users/login", limited(d.users.Login))
	router.Handle("POST /api/users/role", protected(d.users.AssignRole, auth.RoleAdmin))

	router.Handle("GET /api/analytics/topbooks", protected(d.reports.TopBooks, auth.RoleAdmin, auth.RoleSeller))
	router.Handle("GET /api/analytics/salestrends", protected(d.reports.SalesTrends, auth.RoleAdmin, auth.RoleSeller))
	router.Handle("GET /api/analytics/userpatterns", protected(d.reports.UserPatterns, auth.RoleAdmin))

	router.HandleFunc("GET /ws/books", d.subscribers.Subscribe)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(d.logger),
		httpx.RecoveryMiddleware(d.logger),
		httpx.SecurityHeadersMiddleware(d.enableHSTS),
		d.limiter.Middleware,
	)
}
