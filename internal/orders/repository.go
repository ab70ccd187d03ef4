package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/db"
)

// ProductSnapshot is the live product data used to price a checkout line.
type ProductSnapshot struct {
	ID            uuid.UUID
	Name          string
	Brand         string
	BatchCode     *string
	Prices        inventory.Prices
	CurrentVolume decimal.Decimal
	IsActive      bool
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertOrder(ctx context.Context, order Order) (Order, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	UpdateStatus(ctx context.Context, order Order) error
	UpdatePayment(ctx context.Context, order Order) error
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("orders repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, user_id, status, payment_method, payment_status, bkash_transaction_id,
subtotal, shipping_cost, total, shipping_address, tracking_number, notes,
created_at, updated_at, shipped_at, delivered_at, fulfilled_at, fulfilled_by`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, method, payment string
	err := row.Scan(&o.ID, &o.UserID, &status, &method, &payment, &o.BkashTransactionID,
		&o.Subtotal, &o.ShippingCost, &o.Total, &o.ShippingAddress, &o.TrackingNumber, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt, &o.FulfilledAt, &o.FulfilledBy)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	o.PaymentStatus = PaymentStatus(payment)
	return o, nil
}

func (r *txRepository) InsertOrder(ctx context.Context, o Order) (Order, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO orders
(user_id, status, payment_method, payment_status, bkash_transaction_id, subtotal, shipping_cost, total, shipping_address, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+orderColumns,
		o.UserID, string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus), o.BkashTransactionID,
		o.Subtotal, o.ShippingCost, o.Total, o.ShippingAddress, o.Notes)
	stored, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("orders: insert order: %w", err)
	}
	return stored, nil
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (Item, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO order_items
(order_id, product_id, product_name, product_brand, batch_code, size_value, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		item.OrderID, item.ProductID, item.ProductName, item.ProductBrand, item.BatchCode, int(item.SizeValue), item.UnitPrice, item.Quantity,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("orders: insert item: %w", err)
	}
	return item, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *txRepository) UpdateStatus(ctx context.Context, o Order) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, tracking_number=$3, notes=$4, shipped_at=$5, delivered_at=$6, updated_at=NOW()
WHERE id=$1`, o.ID, string(o.Status), o.TrackingNumber, o.Notes, o.ShippedAt, o.DeliveredAt)
	return err
}

func (r *txRepository) UpdatePayment(ctx context.Context, o Order) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET payment_status=$2, bkash_transaction_id=$3, status=$4, updated_at=NOW()
WHERE id=$1`, o.ID, string(o.PaymentStatus), o.BkashTransactionID, string(o.Status))
	return err
}

// Get loads an order with its items.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	if r == nil {
		return Order{}, errors.New("orders repository not initialised")
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.items(ctx, []uuid.UUID{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

// List returns one page of orders newest first with the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error) {
	if r == nil {
		return nil, 0, errors.New("orders repository not initialised")
	}
	var where []string
	var args []any
	if filter.UserID.Valid {
		args = append(args, filter.UserID.UUID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r *Repository) items(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	out := make(map[uuid.UUID][]Item, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, product_name, product_brand, batch_code,
size_value, unit_price, quantity, created_at
FROM order_items WHERE order_id = ANY($1) ORDER BY created_at, id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		var size int
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductBrand, &item.BatchCode,
			&size, &item.UnitPrice, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.SizeValue = inventory.Size(size)
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, rows.Err()
}

// ProductsForCheckout loads the live pricing data of the given products.
func (r *Repository) ProductsForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error) {
	if r == nil {
		return nil, errors.New("orders repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, brand, batch_code, price_10ml, price_15ml, price_30ml, price_100ml,
current_volume_ml, is_active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]ProductSnapshot, len(ids))
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.BatchCode,
			&p.Prices.Price10ml, &p.Prices.Price15ml, &p.Prices.Price30ml, &p.Prices.Price100ml,
			&p.CurrentVolume, &p.IsActive); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
