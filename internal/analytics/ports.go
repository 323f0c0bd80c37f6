package analytics

import "context"

type Repository interface {
	TopBooks(ctx context.Context, genre string, limit int) ([]TopBook, error)
	UserPatterns(ctx context.Context, limit int) ([]UserPattern, error)
	SalesTrends(ctx context.Context, r MonthRange) ([]SalesTrend, error)
}
