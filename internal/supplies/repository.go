package supplies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/db"
)

// Repository persists supplies in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplyColumns = `id, item_name, size_value, stock_count, low_stock_threshold, created_at, updated_at`

func scanSupply(row pgx.Row) (Supply, error) {
	var s Supply
	var size *int
	if err := row.Scan(&s.ID, &s.ItemName, &size, &s.StockCount, &s.LowStockThreshold, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Supply{}, err
	}
	if size != nil {
		v := inventory.Size(*size)
		s.SizeValue = &v
	}
	return s, nil
}

func sizeArg(s *inventory.Size) *int {
	if s == nil {
		return nil
	}
	v := int(*s)
	return &v
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSupplyNotFound
	}
	return err
}

// Insert stores a supply.
func (r *Repository) Insert(ctx context.Context, s Supply) (Supply, error) {
	stored, err := scanSupply(r.pool.QueryRow(ctx, `INSERT INTO supplies (item_name, size_value, stock_count, low_stock_threshold)
VALUES ($1, $2, $3, $4) RETURNING `+supplyColumns, s.ItemName, sizeArg(s.SizeValue), s.StockCount, s.LowStockThreshold))
	if err != nil {
		return Supply{}, fmt.Errorf("supplies: insert: %w", err)
	}
	return stored, nil
}

// Update replaces a supply's fields.
func (r *Repository) Update(ctx context.Context, s Supply) (Supply, error) {
	stored, err := scanSupply(r.pool.QueryRow(ctx, `UPDATE supplies SET item_name=$2, size_value=$3, stock_count=$4,
low_stock_threshold=$5, updated_at=NOW() WHERE id=$1 RETURNING `+supplyColumns,
		s.ID, s.ItemName, sizeArg(s.SizeValue), s.StockCount, s.LowStockThreshold))
	return stored, notFound(err)
}

// AddStock changes stock_count by delta in a single statement.
func (r *Repository) AddStock(ctx context.Context, id uuid.UUID, delta int) (Supply, error) {
	stored, err := scanSupply(r.pool.QueryRow(ctx, `UPDATE supplies SET stock_count = stock_count + $2, updated_at=NOW()
WHERE id=$1 RETURNING `+supplyColumns, id, delta))
	if db.IsCheckViolation(err) {
		return Supply{}, ErrNegativeStock
	}
	return stored, notFound(err)
}

// Delete removes a supply.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM supplies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplyNotFound
	}
	return nil
}

// Get loads one supply.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Supply, error) {
	s, err := scanSupply(r.pool.QueryRow(ctx, `SELECT `+supplyColumns+` FROM supplies WHERE id=$1`, id))
	return s, notFound(err)
}

// List returns all supplies ordered by name; lowOnly keeps those at or under threshold.
func (r *Repository) List(ctx context.Context, lowOnly bool) ([]Supply, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplyColumns+` FROM supplies
WHERE NOT $1 OR stock_count <= low_stock_threshold ORDER BY item_name, size_value NULLS FIRST`, lowOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Supply, error) {
		return scanSupply(row)
	})
}
