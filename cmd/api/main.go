package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookstore/internal/analytics"
	"bookstore/internal/book"
	"bookstore/internal/cache"
	"bookstore/internal/config"
	"bookstore/internal/enrichment"
	"bookstore/internal/httpx"
	"bookstore/internal/notify"
	"bookstore/internal/platform/exchangerate"
	"bookstore/internal/platform/openlibrary"
	"bookstore/internal/user"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := openDB(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	logger.Info("database connection OK")

	cacheOpts := []cache.Option{
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
	}
	bookCache := cache.New[enrichment.BookMetadata](cacheOpts...)
	defer bookCache.Close()
	rateCache := cache.New[float64](cacheOpts...)
	defer rateCache.Close()

	ol := openlibrary.NewClient(cfg.Upstream.OpenLibraryBaseURL, cfg.Upstream.OpenLibraryUserAgent,
		cfg.Upstream.OpenLibraryRPS, cfg.Upstream.OpenLibraryMaxRetries)
	fx := exchangerate.NewClient(cfg.Upstream.ExchangeRateBaseURL, cfg.Upstream.ExchangeRateAccessKey,
		cfg.Upstream.ExchangeRateRPS, cfg.Upstream.ExchangeRateMaxRetries)

	gateway := enrichment.NewGateway(
		enrichment.NewOpenLibraryProvider(ol),
		enrichment.NewExchangeRateProvider(fx),
		bookCache,
		rateCache,
		enrichment.Config{TTL: cfg.Cache.TTL, UpstreamTimeout: cfg.Upstream.Timeout},
		logger,
	)

	hub := notify.NewHub(cfg.Hub.QueueSize, logger)
	defer hub.Close()

	limiter := httpx.NewRateLimiter(cfg.HTTPLimits.RateLimitRPS, cfg.HTTPLimits.RateLimitBurst)
	defer limiter.Stop()

	bookService := book.NewService(book.NewPostgresRepo(dbPool, cfg.DBTimeout), gateway, hub)
	userService := user.NewService(user.NewPostgresRepo(dbPool, cfg.DBTimeout), cfg.JWTSecret, cfg.JWTTTL)
	reportService := analytics.NewService(analytics.NewPostgresRepo(dbPool, cfg.DBTimeout))

	handler := newRouter(routerDeps{
		books:       book.NewHTTPHandler(bookService, logger),
		users:       user.NewHTTPHandler(userService, logger),
		reports:     analytics.NewHTTPHandler(reportService, logger),
		subscribers: notify.NewHTTPHandler(hub, cfg.Hub.AllowedOrigins, cfg.Hub.WriteTimeout, logger),
		limiter:     limiter,
		db:          dbPool,
		jwtSecret:   cfg.JWTSecret,
		enableHSTS:  cfg.EnableHSTS,
		logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; the
	// deferred hub.Close releases them.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", redactDSN(dsn), err)
	}
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
