package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/database"
)

// MustOpenTestDB opens an in-memory SQLite database with the full schema
// applied. Each call gets its own named database so tests stay isolated;
// cache=shared lets the pool open extra connections against it, which the
// concurrency tests rely on. The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000",
		uuid.NewString(),
	)
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
