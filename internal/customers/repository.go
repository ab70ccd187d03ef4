package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/internal/shared"
)

// Repository persists profiles in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `p.id, p.email, p.full_name, p.phone, p.role, p.shipping_address, p.favorite_brands,
p.favorite_scents, p.created_at, p.updated_at`

func scanCustomer(row pgx.Row, extra ...any) (Customer, error) {
	var c Customer
	var role string
	dest := append([]any{&c.ID, &c.Email, &c.FullName, &c.Phone, &role, &c.ShippingAddress,
		&c.FavoriteBrands, &c.FavoriteScents, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Customer{}, err
	}
	c.Role = shared.Role(role)
	return c, nil
}

// Insert stores a new customer profile.
func (r *Repository) Insert(ctx context.Context, c Customer) (Customer, error) {
	if r == nil {
		return Customer{}, errors.New("customers repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO profiles AS p
(id, email, full_name, phone, role, shipping_address, favorite_brands, favorite_scents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+customerColumns,
		c.ID, c.Email, c.FullName, c.Phone, string(c.Role), c.ShippingAddress, c.FavoriteBrands, c.FavoriteScents)
	stored, err := scanCustomer(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Customer{}, ErrEmailTaken
		}
		return Customer{}, fmt.Errorf("customers: insert: %w", err)
	}
	return stored, nil
}

const summaryQuery = `SELECT ` + customerColumns + `,
COALESCE(s.order_count, 0), COALESCE(s.total_spent, 0), s.last_order_at
FROM profiles p
LEFT JOIN (
  SELECT user_id, COUNT(*) AS order_count, SUM(total) AS total_spent, MAX(created_at) AS last_order_at
  FROM orders GROUP BY user_id
) s ON s.user_id = p.id`

func scanSummary(row pgx.Row) (Summary, error) {
	var s Summary
	c, err := scanCustomer(row, &s.OrderCount, &s.TotalSpent, &s.LastOrderAt)
	if err != nil {
		return Summary{}, err
	}
	s.Customer = c
	return s, nil
}

// Get loads a customer with purchase statistics.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Summary, error) {
	if r == nil {
		return Summary{}, errors.New("customers repository not initialised")
	}
	s, err := scanSummary(r.pool.QueryRow(ctx, summaryQuery+` WHERE p.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrCustomerNotFound
	}
	return s, err
}

// List returns one page of customers (role customer), newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Summary, int, error) {
	if r == nil {
		return nil, 0, errors.New("customers repository not initialised")
	}
	where := ` WHERE p.role = 'customer' AND ($1::text = '' OR p.email ILIKE '%' || $1::text || '%' OR p.full_name ILIKE '%' || $1::text || '%')`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles p`+where, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, summaryQuery+where+` ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`, filter.Search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Count returns the number of customer profiles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	if r == nil {
		return 0, errors.New("customers repository not initialised")
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = 'customer'`).Scan(&n)
	return n, err
}
