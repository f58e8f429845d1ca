package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ItemsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]models.Order, error)
}

// ListFilters narrows order listings. A nil UserID lists every customer.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Limit  int
}
