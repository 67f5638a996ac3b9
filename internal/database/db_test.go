package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range []any{&models.User{}, &models.UserProfile{}, &models.IPAddress{}, &models.CacheEntry{}} {
		require.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	require.True(t, db.Migrator().HasIndex(&models.IPAddress{}, "idx_ip_addresses_user_ip"))
}

func TestUsernameIsUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x"}).Error)
	require.Error(t, db.Create(&models.User{Username: "ann", Password: "y"}).Error)
}

func TestProfileEmailIsNotUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	first := models.User{Username: "a", Password: "x"}
	second := models.User{Username: "b", Password: "x"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	require.NoError(t, db.Create(&models.UserProfile{UserID: first.ID, Email: "same@example.com"}).Error)
	require.NoError(t, db.Create(&models.UserProfile{UserID: second.ID, Email: "same@example.com"}).Error)
}

func TestAutoMigrateNilHandle(t *testing.T) {
	require.Error(t, AutoMigrate(nil))
	require.Error(t, Ping(context.Background(), nil))
	require.NoError(t, Close(nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: MemoryDSN(t.Name())})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
