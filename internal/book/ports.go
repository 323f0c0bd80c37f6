package book

import (
	"context"

	"bookstore/internal/enrichment"
	"bookstore/internal/notify"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	GetByID(ctx context.Context, id string) (Book, error)
	UpdateStockAndPrice(ctx context.Context, id string, price float64, stock int) (Book, error)
	Create(ctx context.Context, in Input) (Book, error)
	Update(ctx context.Context, id string, p Patch) (Book, error)
	// Delete removes the book and returns it as it was.
	Delete(ctx context.Context, id string) (Book, error)
}

// Enricher supplies cached external data about books.
type Enricher interface {
	FetchBookDetails(ctx context.Context, isbn string) (enrichment.BookMetadata, error)
	FetchConversionRate(ctx context.Context, from, to string) (float64, error)
}

// Broadcaster pushes events to live listeners.
type Broadcaster interface {
	Broadcast(event notify.Event)
}
