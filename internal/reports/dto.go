package reports

import (
	"time"

	"github.com/google/uuid"
)

// SalesReportDTO is the admin sales report payload.
type SalesReportDTO struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	TotalSales  string       `json:"total_sales"`
	TotalOrders int          `json:"total_orders"`
	Creators    []CreatorDTO `json:"creators"`
}

// CreatorDTO is one creator bucket.
type CreatorDTO struct {
	CreatorID   uuid.UUID    `json:"creator_id"`
	Name        string       `json:"name"`
	TotalSales  string       `json:"total_sales"`
	TotalOrders int          `json:"total_orders"`
	Products    []ProductDTO `json:"products"`
}

// ProductDTO is one product line inside a creator bucket.
type ProductDTO struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	TotalSales string    `json:"total_sales"`
}

// NewSalesReportDTO renders both aggregations for the window.
func NewSalesReportDTO(from, to time.Time, totals Totals, creators []CreatorReport) SalesReportDTO {
	dto := SalesReportDTO{
		From:        from,
		To:          to,
		TotalSales:  totals.TotalSales.StringFixed(2),
		TotalOrders: totals.TotalOrders,
		Creators:    make([]CreatorDTO, 0, len(creators)),
	}
	for _, creator := range creators {
		entry := CreatorDTO{
			CreatorID:   creator.Creator.ID,
			Name:        creator.Creator.Name,
			TotalSales:  creator.TotalSales.StringFixed(2),
			TotalOrders: creator.TotalOrders,
			Products:    make([]ProductDTO, 0, len(creator.Products)),
		}
		for _, product := range creator.Products {
			entry.Products = append(entry.Products, ProductDTO{
				ProductID:  product.ProductID,
				Name:       product.Name,
				Quantity:   product.Quantity,
				TotalSales: product.TotalSales.StringFixed(2),
			})
		}
		dto.Creators = append(dto.Creators, entry)
	}
	return dto
}
