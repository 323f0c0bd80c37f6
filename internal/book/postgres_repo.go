package book

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const bookColumns = `id, title, author, genre, isbn, published_date, price, source_currency,
	stock, created_at, updated_at`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	const countSQL = `SELECT COUNT(*) FROM books WHERE ($1 = '' OR genre = $1)`
	const dataSQL = `SELECT ` + bookColumns + `
		FROM books
		WHERE ($1 = '' OR genre = $1)
		ORDER BY title ASC, id ASC
		LIMIT $2 OFFSET $3`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, q.Genre).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, q.Genre, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	const query = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	bookID, err := parseID(id)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) UpdateStockAndPrice(ctx context.Context, id string, price float64, stock int) (Book, error) {
	const query = `
		UPDATE books
		SET price = $2, stock = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookColumns

	bookID, err := parseID(id)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, bookID, price, stock))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, in Input) (Book, error) {
	const query = `
		INSERT INTO books (title, author, genre, isbn, published_date, price, source_currency, stock)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query,
		in.Title, in.Author, in.Genre, in.ISBN, in.PublishedDate, *in.Price, in.SourceCurrency, *in.Stock))
	if err != nil {
		return Book{}, mapWriteError(err)
	}
	return b, nil
}

// Update sets only the non-nil fields of p. An empty genre clears it.
func (r *PostgresRepo) Update(ctx context.Context, id string, p Patch) (Book, error) {
	const query = `
		UPDATE books SET
			title           = COALESCE($2, title),
			author          = COALESCE($3, author),
			genre           = CASE WHEN $4::text IS NULL THEN genre ELSE NULLIF($4::text, '') END,
			isbn            = COALESCE($5, isbn),
			published_date  = COALESCE($6, published_date),
			price           = COALESCE($7, price),
			source_currency = COALESCE($8, source_currency),
			stock           = COALESCE($9, stock),
			updated_at      = NOW()
		WHERE id = $1
		RETURNING ` + bookColumns

	bookID, err := parseID(id)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, bookID,
		p.Title, p.Author, p.Genre, p.ISBN, p.PublishedDate, p.Price, p.SourceCurrency, p.Stock))
	if err != nil {
		return Book{}, mapWriteError(err)
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (Book, error) {
	const query = `DELETE FROM books WHERE id = $1 RETURNING ` + bookColumns

	bookID, err := parseID(id)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, bookID))
	if err != nil {
		return Book{}, mapWriteError(err)
	}
	return b, nil
}

// parseID rejects ids that are not UUIDs before they reach the database.
// No such book can exist, so they are reported as ErrNotFound.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return u, nil
}

func mapWriteError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateISBN
		case pgForeignKeyViolation:
			return ErrHasSales
		}
	}
	return err
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b     Book
		genre *string
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &genre, &b.ISBN, &b.PublishedDate, &b.Price, &b.SourceCurrency,
		&b.Stock, &b.CreatedAt, &b.UpdatedAt,
	)
	if genre != nil {
		b.Genre = *genre
	}
	return b, err
}
