package book

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookstore/internal/enrichment"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func newTestHandler(t *testing.T) (*HTTPHandler, serviceMocks) {
	t.Helper()
	svc, m := newTestService(t)
	return NewHTTPHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHTTPHandler_List(t *testing.T) {
	handler, m := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		m.repo.EXPECT().List(gomock.Any(), Query{Genre: "fiction", Limit: 10, Offset: 10}).
			Return([]Book{{ID: "1", Title: "Test"}}, 11, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books?genre=fiction&page=2&page_size=10", nil)
		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.EqualValues(t, 2, env.Meta["total_pages"])
	})

	t.Run("error", func(t *testing.T) {
		m.repo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, 0, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		handler.List(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", decodeEnvelope(t, w).Error.Code)
	})
}

func TestHTTPHandler_GetByID(t *testing.T) {
	handler, m := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		m.repo.EXPECT().GetByID(gomock.Any(), "1").Return(Book{ID: "1", Title: "Test"}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1", nil)
		r.SetPathValue("id", "1")
		handler.GetByID(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &b))
		assert.Equal(t, "Test", b.Title)
	})

	t.Run("not found", func(t *testing.T) {
		m.repo.EXPECT().GetByID(gomock.Any(), "2").Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/2", nil)
		r.SetPathValue("id", "2")
		handler.GetByID(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, w).Error.Code)
	})
}

func TestHTTPHandler_GetExternal(t *testing.T) {
	b := Book{ID: "1", ISBN: "9780134190440"}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "success", wantCode: http.StatusOK},
		{name: "upstream down", err: enrichment.ErrUpstreamUnavailable, wantCode: http.StatusBadGateway, wantErr: "UPSTREAM_UNAVAILABLE"},
		{name: "unknown isbn", err: enrichment.ErrMetadataNotFound, wantCode: http.StatusNotFound, wantErr: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := newTestHandler(t)
			m.repo.EXPECT().GetByID(gomock.Any(), "1").Return(b, nil)
			m.enricher.EXPECT().FetchBookDetails(gomock.Any(), b.ISBN).
				Return(enrichment.BookMetadata{ISBN: b.ISBN, Title: "The Go Programming Language"}, tt.err)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/books/1/external", nil)
			r.SetPathValue("id", "1")
			handler.GetExternal(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			env := decodeEnvelope(t, w)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, env.Error.Code)
				return
			}
			var got ExternalDetails
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, "The Go Programming Language", got.External.Title)
		})
	}
}

func TestHTTPHandler_Convert(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "1").Return(Book{ID: "1", Price: 1000}, nil)
		m.enricher.EXPECT().FetchConversionRate(gomock.Any(), "NGN", "USD").Return(0.0025, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1/convert/usd", nil)
		r.SetPathValue("id", "1")
		r.SetPathValue("currency", "usd")
		handler.Convert(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
		assert.Equal(t, "2.50", got["converted_price"])
		assert.Equal(t, "USD", got["currency"])
	})

	t.Run("malformed code", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1/convert/dollars", nil)
		r.SetPathValue("id", "1")
		r.SetPathValue("currency", "dollars")
		handler.Convert(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_CURRENCY", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("provider has no rate", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().GetByID(gomock.Any(), "1").Return(Book{ID: "1", Price: 10}, nil)
		m.enricher.EXPECT().FetchConversionRate(gomock.Any(), "NGN", "JPY").Return(0.0, enrichment.ErrInvalidCurrency)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1/convert/JPY", nil)
		r.SetPathValue("id", "1")
		r.SetPathValue("currency", "JPY")
		handler.Convert(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_CURRENCY", decodeEnvelope(t, w).Error.Code)
	})
}

func TestHTTPHandler_UpdateStockPrice(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, m := newTestHandler(t)
		updated := Book{ID: "1", Price: 12.5, Stock: 4}
		m.repo.EXPECT().UpdateStockAndPrice(gomock.Any(), "1", 12.5, 4).Return(updated, nil)
		m.broadcaster.EXPECT().Broadcast(gomock.Any())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/sp/1", strings.NewReader(`{"price":12.5,"stock":4}`))
		r.SetPathValue("id", "1")
		handler.UpdateStockPrice(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{name: "missing stock", body: `{"price":1}`, field: "stock"},
			{name: "negative price", body: `{"price":-1,"stock":1}`, field: "price"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler, _ := newTestHandler(t)

				w := httptest.NewRecorder()
				r := httptest.NewRequest(http.MethodPut, "/api/books/sp/1", strings.NewReader(tt.body))
				r.SetPathValue("id", "1")
				handler.UpdateStockPrice(w, r)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				env := decodeEnvelope(t, w)
				assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
				require.Len(t, env.Error.Details, 1)
				assert.Equal(t, tt.field, env.Error.Details[0].Field)
			})
		}
	})

	t.Run("bad json", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/sp/1", strings.NewReader(`{`))
		r.SetPathValue("id", "1")
		handler.UpdateStockPrice(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().UpdateStockAndPrice(gomock.Any(), "9", 1.0, 1).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/sp/9", strings.NewReader(`{"price":1,"stock":1}`))
		r.SetPathValue("id", "9")
		handler.UpdateStockPrice(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().UpdateStockAndPrice(gomock.Any(), "1", 1.0, 1).Return(Book{}, errors.New("db down"))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/sp/1", strings.NewReader(`{"price":1,"stock":1}`))
		r.SetPathValue("id", "1")
		handler.UpdateStockPrice(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

const createBody = `{"title":"Half of a Yellow Sun","author":"Chimamanda Ngozi Adichie","genre":"fiction",
	"isbn":"9780007200283","published_date":"2006-08-11T00:00:00Z","price":4500,"stock":12}`

func TestHTTPHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, in Input) (Book, error) {
			assert.Equal(t, "9780007200283", in.ISBN)
			assert.Equal(t, "NGN", in.SourceCurrency)
			return Book{ID: "new-id", Title: in.Title, ISBN: in.ISBN, Price: *in.Price, Stock: *in.Stock}, nil
		})

		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(createBody)))

		assert.Equal(t, http.StatusCreated, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &b))
		assert.Equal(t, "new-id", b.ID)
		assert.Equal(t, 12, b.Stock)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{name: "bad isbn", body: strings.Replace(createBody, "9780007200283", "12345", 1), field: "isbn"},
			{name: "missing title", body: strings.Replace(createBody, `"title":"Half of a Yellow Sun",`, "", 1), field: "title"},
			{name: "unknown currency", body: strings.Replace(createBody, `"stock":12`, `"stock":12,"source_currency":"XYZ"`, 1), field: "source_currency"},
			{name: "missing published date", body: strings.Replace(createBody, `"published_date":"2006-08-11T00:00:00Z",`, "", 1), field: "published_date"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler, _ := newTestHandler(t)

				w := httptest.NewRecorder()
				handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(tt.body)))

				assert.Equal(t, http.StatusBadRequest, w.Code)
				env := decodeEnvelope(t, w)
				assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
				require.Len(t, env.Error.Details, 1)
				assert.Equal(t, tt.field, env.Error.Details[0].Field)
			})
		}
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(Book{}, ErrDuplicateISBN)

		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(createBody)))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decodeEnvelope(t, w).Error.Code)
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().Update(gomock.Any(), "1", gomock.Any()).DoAndReturn(func(_ context.Context, _ string, p Patch) (Book, error) {
			assert.Nil(t, p.Title)
			require.NotNil(t, p.Price)
			assert.Equal(t, 19.99, *p.Price)
			return Book{ID: "1", Price: 19.99, Stock: 50}, nil
		})
		m.broadcaster.EXPECT().Broadcast(gomock.Any())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/1", strings.NewReader(`{"price":19.99,"stock":50}`))
		r.SetPathValue("id", "1")
		handler.Update(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/1", strings.NewReader(`{}`))
		r.SetPathValue("id", "1")
		handler.Update(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("negative stock", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/1", strings.NewReader(`{"stock":-3}`))
		r.SetPathValue("id", "1")
		handler.Update(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, m := newTestHandler(t)
		m.repo.EXPECT().Update(gomock.Any(), "nope", gomock.Any()).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/books/nope", strings.NewReader(`{"stock":1}`))
		r.SetPathValue("id", "nope")
		handler.Update(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "deleted", wantCode: http.StatusOK},
		{name: "not found", err: ErrNotFound, wantCode: http.StatusNotFound},
		{name: "has sales", err: ErrHasSales, wantCode: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := newTestHandler(t)
			m.repo.EXPECT().Delete(gomock.Any(), "1").Return(Book{ID: "1"}, tt.err)
			if tt.err == nil {
				m.broadcaster.EXPECT().Broadcast(gomock.Any())
			}

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodDelete, "/api/books/1", nil)
			r.SetPathValue("id", "1")
			handler.Delete(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
