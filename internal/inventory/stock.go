package inventory

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DefaultLowStockCeiling is the highest quantity still considered low.
const DefaultLowStockCeiling = 4

// Policy holds the stock thresholds used for alerting.
type Policy struct {
	LowStockCeiling int
}

// DefaultPolicy alerts when stock lands in [1, 4].
func DefaultPolicy() Policy {
	return Policy{LowStockCeiling: DefaultLowStockCeiling}
}

func (p Policy) ceiling() int {
	if p.LowStockCeiling <= 0 {
		return DefaultLowStockCeiling
	}
	return p.LowStockCeiling
}

// IsLow reports whether qty is in [1, ceiling].
func (p Policy) IsLow(qty int) bool {
	return qty >= 1 && qty <= p.ceiling()
}

// Level buckets qty for display.
func (p Policy) Level(qty int) enums.StockLevel {
	switch {
	case qty <= 0:
		return enums.StockLevelOutOfStock
	case p.IsLow(qty):
		return enums.StockLevelLow
	default:
		return enums.StockLevelNormal
	}
}

// StockChange records one product's stock before and after a write. The
// component that performed the write evaluates it after commit.
type StockChange struct {
	ProductID uuid.UUID
	Name      string
	CreatorID *uuid.UUID
	Before    int
	After     int
}

// Changed reports whether the write moved the value at all.
func (c StockChange) Changed() bool {
	return c.Before != c.After
}

// CrossedIntoLowStock is edge-triggered: the value changed and landed in the
// low band.
func (c StockChange) CrossedIntoLowStock(p Policy) bool {
	return c.Changed() && p.IsLow(c.After)
}

// Depleted reports whether this write took the product to zero.
func (c StockChange) Depleted() bool {
	return c.Changed() && c.After <= 0
}

// LowStockChanges filters changes down to the ones that must alert.
func LowStockChanges(p Policy, changes []StockChange) []StockChange {
	var out []StockChange
	for _, change := range changes {
		if change.CrossedIntoLowStock(p) {
			out = append(out, change)
		}
	}
	return out
}

// ApplyStockInvariant forces a product without stock to inactive. It never
// reactivates a product; that stays an explicit admin decision.
func ApplyStockInvariant(product *models.Product) {
	if product == nil {
		return
	}
	if product.StockQuantity <= 0 {
		product.StockQuantity = 0
		product.Status = enums.ProductStatusInactive
	}
}
