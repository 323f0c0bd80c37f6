package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedISBN(t *testing.T) {
	isbn := seedISBN(1)
	assert.Len(t, isbn, 13)
	assert.Equal(t, "9790000000018", isbn)
	assert.NotEqual(t, seedISBN(1), seedISBN(2))
}

func TestSeedRows(t *testing.T) {
	rows := seedRows(rand.New(rand.NewSource(1)), 0, 25)
	require.Len(t, rows, 25)

	seen := map[string]bool{}
	for _, row := range rows {
		require.Len(t, row, len(seedColumns))
		isbn := row[3].(string)
		assert.False(t, seen[isbn], "duplicate isbn %s", isbn)
		seen[isbn] = true
		assert.Equal(t, "NGN", row[6])
		assert.GreaterOrEqual(t, row[5].(float64), 0.0)
	}
}

func TestSeedRows_OffsetAvoidsExistingISBNs(t *testing.T) {
	first := seedRows(rand.New(rand.NewSource(1)), 0, 10)
	second := seedRows(rand.New(rand.NewSource(1)), 10, 10)

	assert.Equal(t, seedISBN(11), second[0][3])
	for _, a := range first {
		for _, b := range second {
			assert.NotEqual(t, a[3], b[3])
		}
	}
}

func TestSalesRows(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	books := []bookRef{{ID: uuid.New(), Price: 1500}, {ID: uuid.New(), Price: 2250.5}}
	buyers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	rows := salesRows(rand.New(rand.NewSource(7)), books, buyers, 200, now)
	require.Len(t, rows, 200)

	prices := map[uuid.UUID]float64{books[0].ID: books[0].Price, books[1].ID: books[1].Price}
	for _, row := range rows {
		require.Len(t, row, len(saleColumns))
		qty := row[2].(int)
		assert.GreaterOrEqual(t, qty, 1)
		assert.LessOrEqual(t, qty, 5)
		assert.InDelta(t, prices[row[0].(uuid.UUID)]*float64(qty), row[3].(float64), 0.01)

		at := row[4].(time.Time)
		assert.False(t, at.After(now))
		assert.True(t, at.After(now.AddDate(0, -18, 0)))
	}
}

func TestSalesRows_NeedsBooksAndBuyers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, salesRows(rng, nil, []uuid.UUID{uuid.New()}, 10, time.Now()))
	assert.Empty(t, salesRows(rng, []bookRef{{ID: uuid.New()}}, nil, 10, time.Now()))
}

func TestReaderNames(t *testing.T) {
	assert.Equal(t, []string{"reader001", "reader002", "reader003"}, readerNames(3))
	assert.Empty(t, readerNames(0))
}
