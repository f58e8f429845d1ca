package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// User-facing checkout failures.
const (
	MsgEmptyCart         = "Cart is empty."
	MsgInsufficientStock = "Insufficient stock for product."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutNotifier interface {
	NewOrder(ctx context.Context, order models.Order)
	LowStock(ctx context.Context, changes []inventory.StockChange)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, actor auth.Actor) (*models.Order, error)
}

type service struct {
	tx       txRunner
	cartRepo cart.CartRepository
	orders   orders.Repository
	stock    *inventory.Repository
	notifier checkoutNotifier
	metrics  *metrics.OrderMetrics
}

// NewService builds the checkout service. metrics may be nil.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	stock *inventory.Repository,
	notifier checkoutNotifier,
	m *metrics.OrderMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("checkout notifier required")
	}
	return &service{
		tx:       tx,
		cartRepo: cartRepo,
		orders:   ordersRepo,
		stock:    stock,
		notifier: notifier,
		metrics:  m,
	}, nil
}

// Checkout turns the actor's cart into a pending order. The cart row is
// locked before its lines are read, so concurrent checkouts of one cart
// serialise and the later one finds it empty. Every line is re-checked
// against live stock under a row lock; any shortfall rolls back the whole
// transaction so no order, item or stock change survives. The cart row stays,
// emptied. Notifications go out only after commit.
func (s *service) Checkout(ctx context.Context, actor auth.Actor) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var (
		orderID uuid.UUID
		changes []inventory.StockChange
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		stock := s.stock.WithTx(tx)

		if _, err := cartRepo.LockByUser(ctx, actor.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, MsgEmptyCart)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		record, err := cartRepo.FindByUserWithItems(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, MsgEmptyCart)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, MsgEmptyCart)
		}

		order := &models.Order{
			UserID:      actor.UserID,
			TotalAmount: orderTotal(record.Items),
			Status:      enums.OrderStatusPending,
		}
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		productIDs := make([]uuid.UUID, 0, len(record.Items))
		for _, item := range record.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		locked, err := stock.LockProducts(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
		}

		lines := make([]models.OrderItem, 0, len(record.Items))
		for _, item := range record.Items {
			product, ok := locked[item.ProductID]
			if !ok || item.Quantity > product.StockQuantity {
				return insufficientStock(item, product.StockQuantity)
			}

			change, err := stock.Debit(ctx, item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) {
					return insufficientStock(item, product.StockQuantity)
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit stock")
			}
			changes = append(changes, change)

			productID := item.ProductID
			lines = append(lines, models.OrderItem{
				OrderID:   order.ID,
				ProductID: &productID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Subtotal:  item.LineTotal().Round(2),
			})
		}

		if err := ordersRepo.CreateOrderItems(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order items")
		}
		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout(resultLabel(err))
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
	}
	s.metrics.IncCheckout("ok")

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	s.notifier.NewOrder(ctx, *order)
	s.notifier.LowStock(ctx, changes)
	return order, nil
}

// orderTotal sums unit price times quantity over the snapshot, to the cent.
func orderTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}

func insufficientStock(item models.CartItem, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, MsgInsufficientStock).WithDetails(map[string]any{
		"product_id": item.ProductID.String(),
		"requested":  item.Quantity,
		"available":  available,
	})
}

func resultLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
