package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes emitted by PostgreSQL.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
)

// ErrRetriesExhausted is returned by Retry when every attempt hit a serialization failure.
var ErrRetriesExhausted = errors.New("platform/db: transaction retries exhausted")

// IsRetryable reports whether err is a serialization or deadlock failure.
func IsRetryable(err error) bool {
	return hasCode(err, CodeSerializationFailure) || hasCode(err, CodeDeadlockDetected)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	return hasCode(err, CodeCheckViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// RetryObserver is notified before each retry.
type RetryObserver func(attempt int, err error)

// Retry runs fn until it succeeds, fails with a non-retryable error, or attempts run out.
func Retry(ctx context.Context, attempts int, observe RetryObserver, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if observe != nil {
			observe(attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 5 * time.Millisecond
}
