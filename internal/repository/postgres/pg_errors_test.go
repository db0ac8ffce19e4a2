package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/venuepulse/venuepulse/internal/repository"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "no rows is not found",
			in:   pgx.ErrNoRows,
			want: repository.ErrNotFound,
		},
		{
			name: "unique violation is conflict",
			in:   &pgconn.PgError{Code: "23505", ConstraintName: "venue_votes_pkey"},
			want: repository.ErrConflict,
		},
		{
			name: "venue fk violation is not found",
			in:   &pgconn.PgError{Code: "23503", ConstraintName: "venue_votes_venue_id_fkey"},
			want: repository.ErrNotFound,
		},
		{
			name: "user fk violation means missing profile",
			in:   &pgconn.PgError{Code: "23503", ConstraintName: "venue_votes_user_id_fkey"},
			want: repository.ErrProfileMissing,
		},
		{
			name: "booking user fk violation means missing profile",
			in:   &pgconn.PgError{Code: "23503", ConstraintName: "bookings_user_id_fkey"},
			want: repository.ErrProfileMissing,
		},
		{
			name: "wrapped errors still translate",
			in:   fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503", ConstraintName: "favorites_user_id_fkey"}),
			want: repository.ErrProfileMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateDBErr(tt.in), tt.want)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, translateDBErr(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		assert.ErrorIs(t, translateDBErr(boom), boom)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}
