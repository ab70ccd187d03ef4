package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, nil, func() error {
		calls++
		if calls < 2 {
			return &pgconn.PgError{Code: CodeSerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	retried := 0
	err := Retry(context.Background(), 3, func(int, error) { retried++ }, func() error {
		calls++
		return &pgconn.PgError{Code: CodeDeadlockDetected}
	})
	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.True(t, IsRetryable(err))
	require.Equal(t, 3, calls)
	require.Equal(t, 2, retried)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), 5, nil, func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestErrorCodeHelpers(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: CodeUniqueViolation}))
	require.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: CodeForeignKeyViolation}))
	require.True(t, IsCheckViolation(&pgconn.PgError{Code: CodeCheckViolation}))
	require.False(t, IsRetryable(errors.New("plain")))
}
