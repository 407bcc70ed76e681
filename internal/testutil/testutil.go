// Package testutil opens migrated in-memory databases for package tests.
package testutil

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/migration"
	"github.com/smallbiznis/propbill/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a fresh SQLite database with every model migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}
