package analytics

import (
	"context"
	"strings"
	"time"
)

const monthLayout = "2006-01"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TopBooks ranks books by units sold, optionally within one genre.
func (s *Service) TopBooks(ctx context.Context, genre string, limit int) ([]TopBook, error) {
	return s.repo.TopBooks(ctx, strings.TrimSpace(genre), clampLimit(limit))
}

// UserPatterns ranks buyers by number of purchases.
func (s *Service) UserPatterns(ctx context.Context, limit int) ([]UserPattern, error) {
	return s.repo.UserPatterns(ctx, clampLimit(limit))
}

// SalesTrends sums revenue per month between from and to, both YYYY-MM and
// inclusive. Either may be empty for an open end.
func (s *Service) SalesTrends(ctx context.Context, from, to string) ([]SalesTrend, error) {
	r, err := ParseMonthRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.SalesTrends(ctx, r)
}

// ParseMonthRange turns inclusive YYYY-MM bounds into a MonthRange whose
// To is the first instant after the last month.
func ParseMonthRange(from, to string) (MonthRange, error) {
	var r MonthRange
	if from != "" {
		t, err := time.Parse(monthLayout, from)
		if err != nil {
			return MonthRange{}, ErrInvalidRange
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.Parse(monthLayout, to)
		if err != nil {
			return MonthRange{}, ErrInvalidRange
		}
		t = t.AddDate(0, 1, 0)
		r.To = &t
	}
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return MonthRange{}, ErrInvalidRange
	}
	return r, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
