package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/db"
)

// TxRepository exposes the writes of a catalog transaction. Ledger returns
// the volume ledger bound to the same transaction.
type TxRepository interface {
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, d Details) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Referenced(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Ledger() inventory.TxRepository
}

// Repository persists products in PostgreSQL.
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
		return errors.New("catalog repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const productColumns = `id, name, brand, description, concentration, gender, season, total_volume_ml, current_volume_ml,
batch_code, top_notes, heart_notes, base_notes, price_10ml, price_15ml, price_30ml, price_100ml, image_url,
is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var concentration, gender, season string
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &concentration, &gender, &season,
		&p.TotalVolume, &p.CurrentVolume, &p.BatchCode, &p.Notes.Top, &p.Notes.Heart, &p.Notes.Base,
		&p.Price10ml, &p.Price15ml, &p.Price30ml, &p.Price100ml, &p.ImageURL,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Concentration = Concentration(concentration)
	p.Gender = Gender(gender)
	p.Season = Season(season)
	return p, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (r *txRepository) InsertProduct(ctx context.Context, p Product) (Product, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO products
(name, brand, description, concentration, gender, season, total_volume_ml, current_volume_ml, batch_code,
 top_notes, heart_notes, base_notes, price_10ml, price_15ml, price_30ml, price_100ml, image_url, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING `+productColumns,
		p.Name, p.Brand, p.Description, string(p.Concentration), string(p.Gender), string(p.Season),
		p.TotalVolume, p.CurrentVolume, p.BatchCode, p.Notes.Top, p.Notes.Heart, p.Notes.Base,
		p.Price10ml, p.Price15ml, p.Price30ml, p.Price100ml, p.ImageURL, p.IsActive)
	stored, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return stored, nil
}

// UpdateDetails never touches volume columns.
func (r *txRepository) UpdateDetails(ctx context.Context, id uuid.UUID, d Details) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET name=$2, brand=$3, description=$4, concentration=$5, gender=$6,
season=$7, batch_code=$8, top_notes=$9, heart_notes=$10, base_notes=$11, price_10ml=$12, price_15ml=$13,
price_30ml=$14, price_100ml=$15, image_url=$16, updated_at=NOW()
WHERE id=$1`,
		id, d.Name, d.Brand, nullable(d.Description), string(d.Concentration), string(d.Gender), string(seasonOrDefault(d.Season)),
		nullable(d.BatchCode), d.Notes.Top, d.Notes.Heart, d.Notes.Base,
		d.Price10ml, d.Price15ml, d.Price30ml, d.Price100ml, nullable(d.ImageURL))
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) Referenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM volume_adjustments WHERE product_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

// DeleteProduct removes a product row. Volume history is never deleted; the
// RESTRICT foreign key rejects the delete if any adjustment exists.
func (r *txRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) Ledger() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

// Get loads one product.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	if r == nil {
		return Product{}, errors.New("catalog repository not initialised")
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// List returns one page of products, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int, error) {
	if r == nil {
		return nil, 0, errors.New("catalog repository not initialised")
	}
	var where []string
	var args []any
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	if filter.Gender != "" {
		args = append(args, string(filter.Gender))
		where = append(where, fmt.Sprintf("gender=$%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
