// Package dbtest opens throwaway SQLite databases migrated with the storefront
// models, plus a few seed helpers shared by package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Open returns a fresh in-memory database private to the caller.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.Config())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps conn in a db.Client so services get a real WithTx.
func Client(conn *gorm.DB) *db.Client {
	return db.Wrap(conn)
}

// MustCreateUser inserts a user with the given role.
func MustCreateUser(t testing.TB, conn *gorm.DB, name string, role enums.UserRole) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s_%s@example.com", name, uuid.NewString()[:8])
	user := &models.User{Name: name, Email: &email, Role: role}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateProduct inserts an active product. creator may be nil.
func MustCreateProduct(t testing.TB, conn *gorm.DB, name, price string, stock int, creator *uuid.UUID) *models.Product {
	t.Helper()
	status := enums.ProductStatusActive
	if stock <= 0 {
		status = enums.ProductStatusInactive
	}
	product := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Status:        status,
		CreatedBy:     creator,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// ReloadProduct fetches the current row for id.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}
