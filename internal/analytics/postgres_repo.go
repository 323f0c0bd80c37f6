package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

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

// TopBooks only ranks books that have at least one sale.
func (r *PostgresRepo) TopBooks(ctx context.Context, genre string, limit int) ([]TopBook, error) {
	const query = `
	SELECT b.id, COALESCE(b.genre, ''), b.title, b.author, b.price, SUM(s.quantity)::bigint AS total_quantity
	FROM books b
	JOIN sales s ON s.book_id = b.id
	WHERE ($1 = '' OR b.genre = $1)
	GROUP BY b.id
	ORDER BY total_quantity DESC, b.title ASC
	LIMIT $2
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, genre, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TopBook{}
	for rows.Next() {
		var tb TopBook
		if err := rows.Scan(&tb.BookID, &tb.Genre, &tb.Title, &tb.Author, &tb.Price, &tb.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UserPatterns(ctx context.Context, limit int) ([]UserPattern, error) {
	const query = `
	SELECT u.id, u.username, COUNT(s.id) AS total_purchases, SUM(s.total_price) AS total_spent
	FROM sales s
	JOIN users u ON u.id = s.user_id
	GROUP BY u.id, u.username
	ORDER BY total_purchases DESC, u.username ASC
	LIMIT $1
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []UserPattern{}
	for rows.Next() {
		var up UserPattern
		if err := rows.Scan(&up.UserID, &up.Username, &up.TotalPurchases, &up.TotalSpent); err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SalesTrends(ctx context.Context, mr MonthRange) ([]SalesTrend, error) {
	const query = `
	SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
	       SUM(total_price) AS total_sales,
	       SUM(quantity)::bigint AS units
	FROM sales
	WHERE ($1::timestamptz IS NULL OR created_at >= $1)
	  AND ($2::timestamptz IS NULL OR created_at < $2)
	GROUP BY 1
	ORDER BY 1 ASC
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, mr.From, mr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SalesTrend{}
	for rows.Next() {
		var st SalesTrend
		if err := rows.Scan(&st.Month, &st.TotalSales, &st.Units); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
