// Package dbtest opens throwaway SQLite databases for repository and
// service tests.
package dbtest

import (
	"testing"

	"github.com/friedchicken888/cab432-a2/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database private to the test.
func Open(tb testing.TB) *database.GormProvider {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	require.NoError(tb, db.AutoMigrate(database.Models()...))
	tb.Cleanup(func() { _ = sqlDB.Close() })

	return database.NewGormProviderFromDB(db)
}
