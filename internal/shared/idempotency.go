package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cologne-noir/decant/internal/platform/db"
)

// IdempotencyDB is the pool surface the store needs.
type IdempotencyDB interface {
	Execer
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdempotencyStore persists processed keys and the resource each produced.
type IdempotencyStore struct {
	db IdempotencyDB
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool IdempotencyDB) *IdempotencyStore {
	return &IdempotencyStore{db: pool}
}

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, time.Now())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Bind attaches the produced resource to a claimed key.
func (s *IdempotencyStore) Bind(ctx context.Context, key, module, resourceID string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `UPDATE idempotency_keys SET resource_id=$3 WHERE key=$1 AND module=$2`, key, module, resourceID)
	return err
}

// Lookup returns the resource bound to key, or "" when the first request is still in flight.
func (s *IdempotencyStore) Lookup(ctx context.Context, key, module string) (string, error) {
	if s == nil {
		return "", errors.New("idempotency store not initialised")
	}
	var resource *string
	err := s.db.QueryRow(ctx, `SELECT resource_id FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module).Scan(&resource)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if resource == nil {
		return "", nil
	}
	return *resource, nil
}

// Cleanup removes entries older than retention and reports how many were removed.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module)
	return err
}
