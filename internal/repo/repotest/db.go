// Package repotest opens a migrated in-memory database for tests.
package repotest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"recipebox/internal/core/database"
	"recipebox/internal/repo"
)

// Open returns a fresh sqlite database with every table migrated. A single
// connection keeps the in-memory database alive for the test's lifetime.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file::memory:",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
