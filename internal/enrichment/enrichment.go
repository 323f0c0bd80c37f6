// Package enrichment puts slow external lookups, such as book metadata by
// ISBN and currency conversion rates, behind a TTL cache. Concurrent
// requests for the same key share a single upstream call.
package enrichment

import "errors"

var (
	// ErrUpstreamUnavailable is returned when a provider call fails or times
	// out. It is transient and the caller may retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidCurrency is returned when the rate provider answers but has
	// no rate for the requested pair.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrMetadataNotFound is returned when the metadata provider answers but
	// knows nothing about the ISBN.
	ErrMetadataNotFound = errors.New("book metadata not found")
)

// BookMetadata is the externally sourced description of an edition.
type BookMetadata struct {
	ISBN          string   `json:"isbn"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Publishers    []string `json:"publishers,omitempty"`
	PublishDate   string   `json:"publish_date,omitempty"`
	NumberOfPages int      `json:"number_of_pages,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
}
