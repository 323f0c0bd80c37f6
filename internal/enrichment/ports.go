package enrichment

import "context"

// MetadataProvider looks up book metadata. Implementations return an error
// matching ErrMetadataNotFound when the ISBN is unknown.
type MetadataProvider interface {
	LookupISBN(ctx context.Context, isbn string) (BookMetadata, error)
}

// RateProvider looks up the conversion rate from one currency to another.
// Implementations return an error matching ErrInvalidCurrency when the pair
// has no rate.
type RateProvider interface {
	LookupRate(ctx context.Context, from, to string) (float64, error)
}
