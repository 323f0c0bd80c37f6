package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"bookstore/internal/auth"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var seedColumns = []string{
	"title", "author", "genre", "isbn", "published_date", "price", "source_currency", "stock",
}

var saleColumns = []string{"book_id", "user_id", "quantity", "total_price", "created_at"}

// bookRef is the part of a stored book a sale needs.
type bookRef struct {
	ID    uuid.UUID
	Price float64
}

func main() {
	count := flag.Int("count", 1000, "Number of books to insert")
	users := flag.Int("users", 25, "Number of reader accounts to ensure")
	sales := flag.Int("sales", 2000, "Number of sales to insert")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	if err := run(context.Background(), logger, *count, *users, *sales); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, count, users, sales int) error {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return errors.New("DB_DSN is not set")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := ensureAdmin(ctx, pool, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		return err
	}

	var existing int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&existing); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	rows := seedRows(rng, existing, count)
	logger.Info("inserting books", "count", len(rows))
	n, err := pool.CopyFrom(ctx, pgx.Identifier{"books"}, seedColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert books: %w", err)
	}
	logger.Info("books inserted", "inserted", n, "total", existing+int(n))

	readerIDs, err := ensureReaders(ctx, pool, users)
	if err != nil {
		return err
	}
	books, err := sampleBooks(ctx, pool, 500)
	if err != nil {
		return err
	}

	saleRows := salesRows(rng, books, readerIDs, sales, time.Now().UTC())
	n, err = pool.CopyFrom(ctx, pgx.Identifier{"sales"}, saleColumns, pgx.CopyFromRows(saleRows))
	if err != nil {
		return fmt.Errorf("insert sales: %w", err)
	}
	logger.Info("seed complete", "readers", len(readerIDs), "sales", n)
	return nil
}

// ensureAdmin creates or promotes the bootstrap admin. Without credentials
// it does nothing.
func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, role) VALUES ($1, $2, 'ADMIN')
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, role = 'ADMIN', updated_at = NOW()`,
		username, hash)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

// ensureReaders makes sure reader001..readerN exist and returns their ids.
// They share one password, SEED_USER_PASSWORD or "readerpass".
func ensureReaders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	password := os.Getenv("SEED_USER_PASSWORD")
	if password == "" {
		password = "readerpass"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash reader password: %w", err)
	}

	batch := &pgx.Batch{}
	for _, name := range readerNames(count) {
		batch.Queue(`INSERT INTO users (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`, name, hash)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert readers: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT id FROM users WHERE username = ANY($1)`, readerNames(count))
	if err != nil {
		return nil, fmt.Errorf("load readers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func sampleBooks(ctx context.Context, pool *pgxpool.Pool, limit int) ([]bookRef, error) {
	rows, err := pool.Query(ctx, `SELECT id, price FROM books ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("sample books: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[bookRef])
}

func readerNames(count int) []string {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("reader%03d", i+1)
	}
	return names
}

func seedRows(rng *rand.Rand, offset, count int) [][]any {
	genres := []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography"}
	authors := []string{"Chinua Achebe", "Chimamanda Adichie", "Wole Soyinka", "Ben Okri", "Buchi Emecheta", "Ayobami Adebayo"}

	rows := make([][]any, 0, count)
	for i := range count {
		n := offset + i + 1
		published := time.Date(1950+rng.Intn(75), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		price := float64(1000 + rng.Intn(20000))
		rows = append(rows, []any{
			fmt.Sprintf("Book Title %d - %s", n, randomWord(rng)),
			authors[rng.Intn(len(authors))],
			genres[rng.Intn(len(genres))],
			seedISBN(n),
			published,
			price,
			"NGN",
			rng.Intn(50),
		})
	}
	return rows
}

// salesRows spreads count sales over the 18 months before now. Nothing is
// produced without books or buyers.
func salesRows(rng *rand.Rand, books []bookRef, buyers []uuid.UUID, count int, now time.Time) [][]any {
	if len(books) == 0 || len(buyers) == 0 {
		return nil
	}
	window := now.Sub(now.AddDate(0, -18, 0))

	rows := make([][]any, 0, count)
	for range count {
		b := books[rng.Intn(len(books))]
		qty := 1 + rng.Intn(5)
		rows = append(rows, []any{
			b.ID,
			buyers[rng.Intn(len(buyers))],
			qty,
			math.Round(b.Price*float64(qty)*100) / 100,
			now.Add(-time.Duration(rng.Int63n(int64(window)))),
		})
	}
	return rows
}

// seedISBN builds a syntactically valid ISBN-13 in the 979 range.
func seedISBN(n int) string {
	body := fmt.Sprintf("979%09d", n)
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return fmt.Sprintf("%s%d", body, (10-sum%10)%10)
}

func randomWord(rng *rand.Rand) string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
	}
	return words[rng.Intn(len(words))]
}
