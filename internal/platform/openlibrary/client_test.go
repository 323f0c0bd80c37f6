package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "bookstore-test", 1000, maxRetries)
	c.backoff = time.Millisecond
	return c
}

func TestClient_GetBookByISBN(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/books", r.URL.Path)
			assert.Equal(t, "ISBN:9780134190440", r.URL.Query().Get("bibkeys"))
			assert.Equal(t, "data", r.URL.Query().Get("jscmd"))
			assert.Equal(t, "bookstore-test", r.Header.Get("User-Agent"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ISBN:9780134190440":{
				"title":"The Go Programming Language",
				"publishers":[{"name":"Addison-Wesley"}],
				"publish_date":"2015",
				"authors":[{"url":"/authors/OL1A","name":"Alan A. A. Donovan"},{"url":"/authors/OL2A","name":"Brian W. Kernighan"}],
				"number_of_pages":380,
				"cover":{"large":"https://covers.example/l.jpg"}
			}}`))
		}, 0)

		details, err := c.GetBookByISBN(context.Background(), "9780134190440")
		require.NoError(t, err)
		assert.Equal(t, "The Go Programming Language", details.Title)
		assert.Len(t, details.Authors, 2)
		assert.Equal(t, 380, details.NumberOfPages)
		assert.Equal(t, "https://covers.example/l.jpg", details.Cover.Large)
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}, 0)

		_, err := c.GetBookByISBN(context.Background(), "0000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"ISBN:1":{"title":"Third Time"}}`))
		}, 3)

		details, err := c.GetBookByISBN(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "Third Time", details.Title)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}, 3)

		_, err := c.GetBookByISBN(context.Background(), "1")
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, 2)

		_, err := c.GetBookByISBN(context.Background(), "1")
		assert.ErrorContains(t, err, "after 2 retries")
	})
}
