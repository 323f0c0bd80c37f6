package enrichment

import (
	"context"
	"errors"
	"fmt"

	"bookstore/internal/platform/exchangerate"
	"bookstore/internal/platform/openlibrary"
)

// OpenLibraryClient is the subset of openlibrary.Client the provider needs.
type OpenLibraryClient interface {
	GetBookByISBN(ctx context.Context, isbn string) (*openlibrary.BookDetails, error)
}

// OpenLibraryProvider serves metadata from Open Library.
type OpenLibraryProvider struct {
	client OpenLibraryClient
}

func NewOpenLibraryProvider(client OpenLibraryClient) *OpenLibraryProvider {
	return &OpenLibraryProvider{client: client}
}

func (p *OpenLibraryProvider) LookupISBN(ctx context.Context, isbn string) (BookMetadata, error) {
	details, err := p.client.GetBookByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return BookMetadata{}, fmt.Errorf("%w: %s", ErrMetadataNotFound, isbn)
		}
		return BookMetadata{}, err
	}

	md := BookMetadata{
		ISBN:          isbn,
		Title:         details.Title,
		Subtitle:      details.Subtitle,
		PublishDate:   details.PublishDate,
		NumberOfPages: details.NumberOfPages,
		CoverURL:      details.Cover.Large,
	}
	for _, a := range details.Authors {
		md.Authors = append(md.Authors, a.Name)
	}
	for _, p := range details.Publishers {
		md.Publishers = append(md.Publishers, p.Name)
	}
	for _, s := range details.Subjects {
		md.Subjects = append(md.Subjects, s.Name)
	}
	return md, nil
}

// ExchangeRateClient is the subset of exchangerate.Client the provider needs.
type ExchangeRateClient interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// ExchangeRateProvider serves conversion rates from the exchange rate API.
type ExchangeRateProvider struct {
	client ExchangeRateClient
}

func NewExchangeRateProvider(client ExchangeRateClient) *ExchangeRateProvider {
	return &ExchangeRateProvider{client: client}
}

func (p *ExchangeRateProvider) LookupRate(ctx context.Context, from, to string) (float64, error) {
	rate, err := p.client.GetRate(ctx, from, to)
	if err != nil {
		if errors.Is(err, exchangerate.ErrRateNotFound) {
			return 0, fmt.Errorf("%w: %s to %s", ErrInvalidCurrency, from, to)
		}
		return 0, err
	}
	return rate, nil
}
