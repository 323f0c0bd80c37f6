package book

import (
	"context"
	"strings"

	"bookstore/internal/enrichment"
	"bookstore/internal/notify"
)

// ExternalDetails is a stored book together with its externally sourced metadata.
type ExternalDetails struct {
	Book
	External enrichment.BookMetadata `json:"external"`
}

// Conversion is a book priced in another currency. ConvertedPrice is
// rendered with two decimals.
type Conversion struct {
	Book
	ConvertedPrice string  `json:"converted_price"`
	Currency       string  `json:"currency"`
	Rate           float64 `json:"rate"`
}

// Service provides book-related business logic.
type Service struct {
	repo        Repository
	enricher    Enricher
	broadcaster Broadcaster
}

// NewService creates a new book service.
func NewService(repo Repository, enricher Enricher, broadcaster Broadcaster) *Service {
	return &Service{repo: repo, enricher: enricher, broadcaster: broadcaster}
}

// List returns a page of books.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	return s.repo.List(ctx, q)
}

// GetByID returns a book by its ID.
func (s *Service) GetByID(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// ExternalDetails loads a book and enriches it with metadata looked up by ISBN.
func (s *Service) ExternalDetails(ctx context.Context, id string) (ExternalDetails, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ExternalDetails{}, err
	}
	md, err := s.enricher.FetchBookDetails(ctx, b.ISBN)
	if err != nil {
		return ExternalDetails{}, err
	}
	return ExternalDetails{Book: b, External: md}, nil
}

// Convert prices a book in the target currency.
func (s *Service) Convert(ctx context.Context, id, currency string) (Conversion, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Conversion{}, err
	}

	from := b.SourceCurrency
	if from == "" {
		from = DefaultSourceCurrency
	}
	currency = strings.ToUpper(currency)

	rate, err := s.enricher.FetchConversionRate(ctx, from, currency)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		Book:           b,
		ConvertedPrice: FormatPrice(ConvertPrice(b.Price, rate)),
		Currency:       currency,
		Rate:           rate,
	}, nil
}

// UpdateStockAndPrice persists the new stock and price and then notifies
// live listeners. Nothing is broadcast if the update fails.
func (s *Service) UpdateStockAndPrice(ctx context.Context, id string, in StockPriceUpdate) (Book, error) {
	if in.Price == nil || in.Stock == nil {
		return Book{}, ErrInvalidInput
	}
	b, err := s.repo.UpdateStockAndPrice(ctx, id, *in.Price, *in.Stock)
	if err != nil {
		return Book{}, err
	}
	s.broadcaster.Broadcast(notify.Event{Type: notify.EventUpdate, Book: b})
	return b, nil
}

// Create stores a new book. The source currency defaults to NGN.
func (s *Service) Create(ctx context.Context, in Input) (Book, error) {
	if in.Price == nil || in.Stock == nil {
		return Book{}, ErrInvalidInput
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Genre = strings.TrimSpace(in.Genre)
	in.SourceCurrency = strings.ToUpper(strings.TrimSpace(in.SourceCurrency))
	if in.SourceCurrency == "" {
		in.SourceCurrency = DefaultSourceCurrency
	}
	return s.repo.Create(ctx, in)
}

// Update applies a partial update and notifies live listeners.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Book, error) {
	if p.Empty() {
		return Book{}, ErrInvalidInput
	}
	if p.SourceCurrency != nil {
		c := strings.ToUpper(*p.SourceCurrency)
		p.SourceCurrency = &c
	}
	b, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return Book{}, err
	}
	s.broadcaster.Broadcast(notify.Event{Type: notify.EventUpdate, Book: b})
	return b, nil
}

// Delete removes a book and notifies live listeners.
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(notify.Event{Type: notify.EventDelete, Book: b})
	return nil
}
