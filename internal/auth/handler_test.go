package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorCode(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		assert.Equal(t, pgUniqueViolation, pgErrorCode(err))
	})

	t.Run("foreign key violation", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23503", ConstraintName: "users_organization_id_fkey"}
		assert.Equal(t, pgForeignKeyViolation, pgErrorCode(err))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})
		assert.Equal(t, pgUniqueViolation, pgErrorCode(err))
	})

	t.Run("not a postgres error", func(t *testing.T) {
		assert.Equal(t, "", pgErrorCode(errors.New("connection refused")))
		assert.Equal(t, "", pgErrorCode(nil))
	})
}
