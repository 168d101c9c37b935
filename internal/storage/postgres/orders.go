package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/cartcraft/internal/storage"
)

const (
	putSummarySQL = `INSERT INTO orders_index (number, status, total, placed_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (number) DO UPDATE SET status = EXCLUDED.status, total = EXCLUDED.total, updated_at = EXCLUDED.updated_at`

	getSummarySQL = `SELECT number, status, total, placed_at FROM orders_index WHERE number = $1`

	revenueSQL = `SELECT COALESCE(SUM(total), 0) FROM orders_index WHERE $1::text = '' OR status = $1`
)

// OrderSummary is the queryable projection of a placed order.
type OrderSummary struct {
	Number   string
	Status   string
	Total    decimal.Decimal
	PlacedAt time.Time
}

// OrderIndex keeps one orders_index row per order so totals can be queried
// with SQL.
type OrderIndex struct {
	pool *pgxpool.Pool
}

// NewOrderIndex returns an OrderIndex that uses the given pool.
func NewOrderIndex(pool *pgxpool.Pool) *OrderIndex {
	return &OrderIndex{pool: pool}
}

// Put upserts the summary for s.Number.
func (i *OrderIndex) Put(ctx context.Context, s OrderSummary) error {
	if _, err := i.pool.Exec(ctx, putSummarySQL, s.Number, s.Status, s.Total, s.PlacedAt); err != nil {
		return fmt.Errorf("indexing order %q: %w", s.Number, err)
	}
	return nil
}

// Get returns the summary for number, or storage.ErrNotFound.
func (i *OrderIndex) Get(ctx context.Context, number string) (OrderSummary, error) {
	var s OrderSummary
	err := i.pool.QueryRow(ctx, getSummarySQL, number).Scan(&s.Number, &s.Status, &s.Total, &s.PlacedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderSummary{}, storage.ErrNotFound
		}
		return OrderSummary{}, fmt.Errorf("getting order summary %q: %w", number, err)
	}
	return s, nil
}

// Revenue sums the totals of orders in status. An empty status sums all.
func (i *OrderIndex) Revenue(ctx context.Context, status string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := i.pool.QueryRow(ctx, revenueSQL, status).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing revenue: %w", err)
	}
	return total, nil
}
