package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

// A ref-id collision must be recognized so the insert is retried with a fresh
// id, while every other Postgres error, notably the aborted-transaction state
// a naive retry loop would hit, surfaces as-is.
func TestIsUniqueViolation(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "bookings_ref_id_key"},
			expected: true,
		},
		{
			name:     "wrapped unique violation",
			err:      fmt.Errorf("insert booking: %w", &pgconn.PgError{Code: "23505"}),
			expected: true,
		},
		{
			name:     "aborted transaction",
			err:      &pgconn.PgError{Code: "25P02"},
			expected: false,
		},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: "23503"},
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("connection reset"),
			expected: false,
		},
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isUniqueViolation(tc.err))
		})
	}
}
