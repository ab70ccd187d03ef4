package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the locked read and the writes of a ledger transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (ProductVolume, error)
	UpdateCurrentVolume(ctx context.Context, id uuid.UUID, volume decimal.Decimal) error
	InsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error)
}

// PgTxRepository implements TxRepository on an open transaction. Other modules
// that mutate volume inside their own transaction build one from their pgx.Tx.
type PgTxRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps tx.
func NewTxRepository(tx pgx.Tx) *PgTxRepository {
	return &PgTxRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// GetProductForUpdate reads the product row and locks it until the transaction ends.
func (r *PgTxRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (ProductVolume, error) {
	var p ProductVolume
	err := r.tx.QueryRow(ctx, `SELECT id, name, total_volume_ml, current_volume_ml, is_active
FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&p.ID, &p.Name, &p.TotalVolume, &p.CurrentVolume, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductVolume{}, ErrProductNotFound
	}
	if err != nil {
		return ProductVolume{}, fmt.Errorf("inventory: lock product: %w", err)
	}
	return p, nil
}

// UpdateCurrentVolume writes the product's remaining volume.
func (r *PgTxRepository) UpdateCurrentVolume(ctx context.Context, id uuid.UUID, volume decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET current_volume_ml=$2, updated_at=NOW() WHERE id=$1`, id, volume)
	if err != nil {
		if db.IsCheckViolation(err) {
			return ErrVolumeOutOfRange
		}
		return fmt.Errorf("inventory: update volume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// InsertAdjustment appends an adjustment row and returns it with id and timestamp.
func (r *PgTxRepository) InsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO volume_adjustments
(product_id, adjusted_by, previous_volume, new_volume, adjustment_amount, reason, notes, order_id)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
RETURNING id, created_at`,
		adj.ProductID, adj.AdjustedBy, adj.PreviousVolume, adj.NewVolume, adj.Amount, string(adj.Reason), adj.Notes, adj.OrderID,
	).Scan(&adj.ID, &adj.CreatedAt)
	if err != nil {
		return Adjustment{}, fmt.Errorf("inventory: insert adjustment: %w", err)
	}
	return adj, nil
}

// ListAdjustments returns a product's adjustments newest first.
func (r *Repository) ListAdjustments(ctx context.Context, productID uuid.UUID, limit int) ([]Adjustment, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, adjusted_by, previous_volume, new_volume, adjustment_amount,
reason, COALESCE(notes, ''), order_id, created_at
FROM volume_adjustments WHERE product_id=$1
ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		var adj Adjustment
		var reason string
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.AdjustedBy, &adj.PreviousVolume, &adj.NewVolume, &adj.Amount,
			&reason, &adj.Notes, &adj.OrderID, &adj.CreatedAt); err != nil {
			return nil, err
		}
		adj.Reason = AdjustmentReason(reason)
		out = append(out, adj)
	}
	return out, rows.Err()
}

// ListLowStock returns active products whose volume is below threshold, emptiest first.
func (r *Repository) ListLowStock(ctx context.Context, threshold decimal.Decimal) ([]LowStockProduct, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, brand, current_volume_ml, total_volume_ml
FROM products WHERE is_active AND current_volume_ml < $1
ORDER BY current_volume_ml ASC, name ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LowStockProduct
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.CurrentVolume, &p.TotalVolume); err != nil {
			return nil, err
		}
		p.Status = ClassifyWithThreshold(p.CurrentVolume, threshold)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LedgerTotals returns stored volumes next to the signed sum of the product's adjustments.
func (r *Repository) LedgerTotals(ctx context.Context, productID uuid.UUID) (LedgerTotals, error) {
	if r == nil {
		return LedgerTotals{}, errors.New("inventory repository not initialised")
	}
	var t LedgerTotals
	err := r.pool.QueryRow(ctx, `SELECT p.total_volume_ml, p.current_volume_ml,
COALESCE(SUM(a.adjustment_amount), 0), COUNT(a.id)
FROM products p LEFT JOIN volume_adjustments a ON a.product_id = p.id
WHERE p.id=$1 GROUP BY p.id`, productID).Scan(&t.TotalVolume, &t.CurrentVolume, &t.Adjustments, &t.Entries)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerTotals{}, ErrProductNotFound
	}
	if err != nil {
		return LedgerTotals{}, err
	}
	return t, nil
}

// ListProductIDs returns every product id.
func (r *Repository) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
