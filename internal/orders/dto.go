package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

const deletedProductName = "Deleted product"

// OrderSummary is one row of an order listing.
type OrderSummary struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	TotalAmount  string    `json:"total_amount"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	ItemCount    int       `json:"item_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderItemDTO is an immutable purchased line.
type OrderItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	Subtotal    string     `json:"subtotal"`
}

// OrderDetail is an order with its lines.
type OrderDetail struct {
	OrderSummary
	UpdatedAt time.Time      `json:"updated_at"`
	Items     []OrderItemDTO `json:"items"`
}

// NewOrderSummary builds the listing view of order.
func NewOrderSummary(order models.Order) OrderSummary {
	summary := OrderSummary{
		ID:          order.ID,
		Status:      order.Status.String(),
		TotalAmount: order.TotalAmount.StringFixed(2),
		CustomerID:  order.UserID,
		CreatedAt:   order.CreatedAt,
	}
	if order.User != nil {
		summary.CustomerName = order.User.Name
	}
	for _, item := range order.Items {
		summary.ItemCount += item.Quantity
	}
	return summary
}

// NewOrderDetail builds the detail view of order.
func NewOrderDetail(order models.Order) *OrderDetail {
	detail := &OrderDetail{
		OrderSummary: NewOrderSummary(order),
		UpdatedAt:    order.UpdatedAt,
		Items:        make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		line := OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: deletedProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		detail.Items = append(detail.Items, line)
	}
	return detail
}
