package stats

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the read-only dashboard queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var errNoPool = errors.New("stats repository not initialised")

// OrderCounts tallies all orders, pending ones and those created since dayStart.
func (r *Repository) OrderCounts(ctx context.Context, dayStart time.Time) (OrderCounts, error) {
	if r == nil {
		return OrderCounts{}, errNoPool
	}
	var c OrderCounts
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
COUNT(*) FILTER (WHERE status IN ('pending_payment', 'new')),
COUNT(*) FILTER (WHERE created_at >= $1)
FROM orders`, dayStart).Scan(&c.Total, &c.Pending, &c.Today)
	return c, err
}

// Revenue sums paid order totals, overall and since dayStart.
func (r *Repository) Revenue(ctx context.Context, dayStart time.Time) (Revenue, error) {
	if r == nil {
		return Revenue{}, errNoPool
	}
	var rev Revenue
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0),
COALESCE(SUM(total) FILTER (WHERE created_at >= $1), 0)
FROM orders WHERE payment_status = 'paid'`, dayStart).Scan(&rev.AllTime, &rev.Today)
	return rev, err
}

// ActiveVolumes returns the current volume of every active product.
func (r *Repository) ActiveVolumes(ctx context.Context) ([]decimal.Decimal, error) {
	if r == nil {
		return nil, errNoPool
	}
	rows, err := r.pool.Query(ctx, `SELECT current_volume_ml FROM products WHERE is_active`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[decimal.Decimal])
}

// CustomerCount counts customer profiles.
func (r *Repository) CustomerCount(ctx context.Context) (int, error) {
	if r == nil {
		return 0, errNoPool
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = 'customer'`).Scan(&n)
	return n, err
}
