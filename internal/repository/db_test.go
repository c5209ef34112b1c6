package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: pgUniqueViolation}, want: ErrConflict},
		{name: "foreign key violation", in: &pgconn.PgError{Code: pgForeignKeyViolation}, want: ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	other := errors.New("connection reset")
	assert.Same(t, other, translate(other))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 50, normalizeLimit(0, 50, 500))
	assert.Equal(t, 10, normalizeLimit(10, 50, 500))
	assert.Equal(t, 500, normalizeLimit(9000, 50, 500))
}
