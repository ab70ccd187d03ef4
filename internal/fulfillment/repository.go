package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/platform/db"
)

// TxRepository is the transactional surface of the engine: the ledger writes
// plus the order reads and the processed marker.
type TxRepository interface {
	inventory.TxRepository
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error)
	HasFulfillmentAdjustments(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkFulfilled(ctx context.Context, orderID, actorID uuid.UUID, at time.Time) error
}

// Repository opens fulfillment transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	*inventory.PgTxRepository
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("fulfillment repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{PgTxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	var status, payment, method string
	err := r.tx.QueryRow(ctx, `SELECT id, status, payment_status, payment_method, fulfilled_at
FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&o.ID, &status, &payment, &method, &o.FulfilledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("fulfillment: lock order: %w", err)
	}
	o.Status = orders.Status(status)
	o.PaymentStatus = orders.PaymentStatus(payment)
	o.PaymentMethod = orders.PaymentMethod(method)
	return o, nil
}

func (r *txRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, product_id, product_name, size_value, quantity
FROM order_items WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("fulfillment: list items: %w", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		var size int
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &size, &item.Quantity); err != nil {
			return nil, err
		}
		item.Size = inventory.Size(size)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) HasFulfillmentAdjustments(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM volume_adjustments WHERE order_id=$1 AND reason=$2)`,
		orderID, string(inventory.ReasonOrderFulfillment)).Scan(&exists)
	return exists, err
}

func (r *txRepository) MarkFulfilled(ctx context.Context, orderID, actorID uuid.UUID, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, fulfilled_at=$3, fulfilled_by=$4, updated_at=NOW() WHERE id=$1`,
		orderID, string(orders.StatusDecanting), at, actorID)
	if err != nil {
		return fmt.Errorf("fulfillment: mark order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
