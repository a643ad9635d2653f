package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/steamybites/config"
	"github.com/yeremiapane/steamybites/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user, err := NewAuthService(db).WithCost(bcrypt.MinCost).
		Register(context.Background(), RegisterInput{Name: "Test " + role, Email: email, Password: "secret123"}, role)
	require.NoError(t, err)
	return user
}

func createItem(t *testing.T, db *gorm.DB, name, category string, full float64, half *float64) *models.MenuItem {
	t.Helper()
	item, err := NewMenuService(db, nil).CreateItem(context.Background(), MenuItemInput{
		Name:      name,
		Category:  category,
		PriceFull: full,
		PriceHalf: half,
	})
	require.NoError(t, err)
	return item
}

func ptr[T any](v T) *T { return &v }
