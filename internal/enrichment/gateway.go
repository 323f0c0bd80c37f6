package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookstore/internal/cache"
)

const DefaultUpstreamTimeout = 5 * time.Second

type Config struct {
	// TTL for cached lookups. Zero falls back to each cache's default.
	TTL time.Duration
	// UpstreamTimeout bounds every provider call.
	UpstreamTimeout time.Duration
}

// Gateway serves book metadata and conversion rates from cache, calling the
// providers at most once per key and TTL window.
type Gateway struct {
	metadata MetadataProvider
	rates    RateProvider

	books      *cache.Cache[BookMetadata]
	conversion *cache.Cache[float64]

	cfg    Config
	logger *slog.Logger
}

func NewGateway(
	metadata MetadataProvider,
	rates RateProvider,
	books *cache.Cache[BookMetadata],
	conversion *cache.Cache[float64],
	cfg Config,
	logger *slog.Logger,
) *Gateway {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		metadata:   metadata,
		rates:      rates,
		books:      books,
		conversion: conversion,
		cfg:        cfg,
		logger:     logger,
	}
}

// FetchBookDetails returns metadata for isbn, keyed in cache by the ISBN.
func (g *Gateway) FetchBookDetails(ctx context.Context, isbn string) (BookMetadata, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return BookMetadata{}, ErrMetadataNotFound
	}
	md, err := g.books.GetOrFetch(ctx, isbn, g.cfg.TTL, func(ctx context.Context) (BookMetadata, error) {
		ctx, cancel := context.WithTimeout(ctx, g.cfg.UpstreamTimeout)
		defer cancel()

		md, err := g.metadata.LookupISBN(ctx, isbn)
		if err != nil {
			if errors.Is(err, ErrMetadataNotFound) {
				return BookMetadata{}, err
			}
			g.logger.WarnContext(ctx, "book metadata lookup failed", "isbn", isbn, "error", err)
			return BookMetadata{}, fmt.Errorf("%w: book metadata for %s: %w", ErrUpstreamUnavailable, isbn, err)
		}
		if md.ISBN == "" {
			md.ISBN = isbn
		}
		return md, nil
	})
	return md, g.upstreamPanic(ctx, err)
}

// FetchConversionRate returns the rate to convert from one currency into
// another. Keys are directional: USD_EUR and EUR_USD are cached separately.
func (g *Gateway) FetchConversionRate(ctx context.Context, from, to string) (float64, error) {
	from = normalizeCurrency(from)
	to = normalizeCurrency(to)
	if from == "" || to == "" {
		return 0, ErrInvalidCurrency
	}

	key := RateKey(from, to)
	rate, err := g.conversion.GetOrFetch(ctx, key, g.cfg.TTL, func(ctx context.Context) (float64, error) {
		ctx, cancel := context.WithTimeout(ctx, g.cfg.UpstreamTimeout)
		defer cancel()

		rate, err := g.rates.LookupRate(ctx, from, to)
		if err != nil {
			if errors.Is(err, ErrInvalidCurrency) {
				return 0, err
			}
			g.logger.WarnContext(ctx, "conversion rate lookup failed", "pair", key, "error", err)
			return 0, fmt.Errorf("%w: conversion rate %s: %w", ErrUpstreamUnavailable, key, err)
		}
		if rate <= 0 {
			return 0, fmt.Errorf("%w: no rate for %s", ErrInvalidCurrency, key)
		}
		return rate, nil
	})
	return rate, g.upstreamPanic(ctx, err)
}

// upstreamPanic reports a provider panic as an unavailable upstream.
func (g *Gateway) upstreamPanic(ctx context.Context, err error) error {
	if errors.Is(err, cache.ErrFetchPanicked) {
		g.logger.ErrorContext(ctx, "provider panicked", "error", err)
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return err
}

// RateKey builds the cache key for a currency pair.
func RateKey(from, to string) string {
	return from + "_" + to
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
