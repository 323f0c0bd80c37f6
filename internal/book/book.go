package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidInput is returned when a write is missing required fields.
	ErrInvalidInput = errors.New("book: invalid input")
	// ErrDuplicateISBN is returned when another book already has the ISBN.
	ErrDuplicateISBN = errors.New("book: isbn already exists")
	// ErrHasSales is returned when deleting a book that sales still reference.
	ErrHasSales = errors.New("book: referenced by sales")
)

// DefaultSourceCurrency is the currency prices are stored in unless a book says otherwise.
const DefaultSourceCurrency = "NGN"

// Book represents a book entity.
type Book struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Genre          string    `json:"genre,omitempty"`
	ISBN           string    `json:"isbn"`
	PublishedDate  time.Time `json:"published_date"`
	Price          float64   `json:"price"`
	SourceCurrency string    `json:"source_currency"`
	Stock          int       `json:"stock"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Query defines pagination for listing books.
type Query struct {
	Genre  string
	Limit  int
	Offset int
}

// StockPriceUpdate is the input for UpdateStockAndPrice.
type StockPriceUpdate struct {
	Price *float64 `json:"price" validate:"required,gte=0"`
	Stock *int     `json:"stock" validate:"required,gte=0"`
}

// Input is the payload for creating a book.
type Input struct {
	Title          string    `json:"title" validate:"required,max=255"`
	Author         string    `json:"author" validate:"required,max=255"`
	Genre          string    `json:"genre" validate:"omitempty,max=100"`
	ISBN           string    `json:"isbn" validate:"required,isbn"`
	PublishedDate  time.Time `json:"published_date" validate:"required"`
	Price          *float64  `json:"price" validate:"required,gte=0"`
	SourceCurrency string    `json:"source_currency" validate:"omitempty,iso4217"`
	Stock          *int      `json:"stock" validate:"required,gte=0"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Author         *string    `json:"author" validate:"omitempty,min=1,max=255"`
	Genre          *string    `json:"genre" validate:"omitempty,max=100"`
	ISBN           *string    `json:"isbn" validate:"omitempty,isbn"`
	PublishedDate  *time.Time `json:"published_date"`
	Price          *float64   `json:"price" validate:"omitempty,gte=0"`
	SourceCurrency *string    `json:"source_currency" validate:"omitempty,iso4217"`
	Stock          *int       `json:"stock" validate:"omitempty,gte=0"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil && p.ISBN == nil &&
		p.PublishedDate == nil && p.Price == nil && p.SourceCurrency == nil && p.Stock == nil
}
