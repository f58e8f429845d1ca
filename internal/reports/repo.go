package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository reads committed orders for reporting. It never writes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CompletedOrders returns completed orders created in [from, to].
func (r *Repository) CompletedOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.completed(ctx, from, to).
		Select("id", "user_id", "total_amount", "status", "created_at").
		Find(&rows).Error
	return rows, err
}

// CompletedOrdersWithItems is CompletedOrders with items, their products and
// the products' creators attached.
func (r *Repository) CompletedOrdersWithItems(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.completed(ctx, from, to).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Items.Product").
		Preload("Items.Product.Creator").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) completed(ctx context.Context, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusCompleted).
		Where("created_at BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Order("id ASC")
}
