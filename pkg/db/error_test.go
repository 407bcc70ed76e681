package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(&pq.Error{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: invoices.org_id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("syntax error")))
}

func TestIsUnavailableErr(t *testing.T) {
	assert.False(t, IsUnavailableErr(nil))
	assert.True(t, IsUnavailableErr(fmt.Errorf("query: %w", driver.ErrBadConn)))
	assert.True(t, IsUnavailableErr(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsUnavailableErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUnavailableErr(&pq.Error{Code: "08001"}))
	assert.False(t, IsUnavailableErr(&pq.Error{Code: "23505"}))
	assert.False(t, IsUnavailableErr(gorm.ErrRecordNotFound))
}
