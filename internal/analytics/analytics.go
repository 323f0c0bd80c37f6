// Package analytics reports on recorded sales: best sellers, per-user
// purchase counts and monthly revenue.
package analytics

import (
	"errors"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ErrInvalidRange is returned for a malformed or inverted month range.
var ErrInvalidRange = errors.New("analytics: invalid month range")

// TopBook is a book ranked by units sold.
type TopBook struct {
	BookID        string  `json:"book_id"`
	Genre         string  `json:"genre,omitempty"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
}

// UserPattern is a buyer ranked by number of purchases.
type UserPattern struct {
	UserID         string  `json:"user_id"`
	Username       string  `json:"username"`
	TotalPurchases int64   `json:"total_purchases"`
	TotalSpent     float64 `json:"total_spent"`
}

// SalesTrend is the revenue of one calendar month, formatted YYYY-MM.
type SalesTrend struct {
	Month      string  `json:"month"`
	TotalSales float64 `json:"total_sales"`
	Units      int64   `json:"units"`
}

// MonthRange bounds a trend query. Nil ends are open; To is exclusive.
type MonthRange struct {
	From *time.Time
	To   *time.Time
}
