package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartDTO is the cart as rendered to the customer.
type CartDTO struct {
	ID    uuid.UUID     `json:"id"`
	Items []CartItemDTO `json:"items"`
	Total string        `json:"total"`
}

// CartItemDTO is one line with its live product details.
type CartItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	LineTotal      string    `json:"line_total"`
	AvailableStock int       `json:"available_stock"`
}

// NewCartDTO renders cart. Lines whose product vanished still show their
// snapshot.
func NewCartDTO(cart *models.Cart) CartDTO {
	dto := CartDTO{ID: cart.ID, Items: make([]CartItemDTO, 0, len(cart.Items)), Total: cart.Total().StringFixed(2)}
	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.AvailableStock = item.Product.StockQuantity
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
