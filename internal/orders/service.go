package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// User-facing messages for state machine violations.
const (
	MsgOnlyPendingComplete = "Only pending orders can be completed."
	MsgOnlyPendingCancel   = "Only pending orders can be cancelled."
	MsgCancelNotAllowed    = "You are not allowed to cancel this order."
	MsgOrderNotFound       = "Order not found."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderNotifier interface {
	OrderCancelled(ctx context.Context, order models.Order, actor auth.Actor, at time.Time)
	LowStock(ctx context.Context, changes []inventory.StockChange)
}

// Service drives the order state machine and the order read paths.
//
// Pending moves to Completed or Cancelled; both are terminal. Admin entry
// points act on any order, customer entry points only on the actor's own.
type Service interface {
	CompleteOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	CancelOrderAsAdmin(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	CancelOrderAsCustomer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	ListForAdmin(ctx context.Context, actor auth.Actor, filters ListFilters) ([]OrderSummary, error)
	ListForCustomer(ctx context.Context, actor auth.Actor, filters ListFilters) ([]OrderSummary, error)
	DetailForAdmin(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error)
	DetailForCustomer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo     Repository
	stock    *inventory.Repository
	tx       txRunner
	notifier orderNotifier
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewService wires the order service. metrics may be nil.
func NewService(repo Repository, stock *inventory.Repository, tx txRunner, notifier orderNotifier, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("order notifier required")
	}
	return &service{
		repo:     repo,
		stock:    stock,
		tx:       tx,
		notifier: notifier,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CompleteOrder marks a pending order as completed. Stock is untouched.
func (s *service) CompleteOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return stateConflict(MsgOnlyPendingComplete, order.Status)
		}
		return transition(ctx, repo, orderID, enums.OrderStatusCompleted, MsgOnlyPendingComplete)
	})
	if err != nil {
		return nil, asServiceError(err, "complete order")
	}

	s.metrics.IncTransition(string(enums.OrderStatusCompleted), string(actor.Role))
	return s.reload(ctx, orderID)
}

// CancelOrderAsAdmin cancels any pending order and tells its owner.
func (s *service) CancelOrderAsAdmin(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.cancel(ctx, actor, orderID, false)
}

// CancelOrderAsCustomer cancels the actor's own pending order and tells the
// admins.
func (s *service) CancelOrderAsCustomer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.cancel(ctx, actor, orderID, true)
}

// cancel restores every line's quantity and flips the order to cancelled in
// one transaction. Lines whose product is gone are skipped. Stock is credited
// in product id order, matching the lock order checkout uses.
func (s *service) cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, ownerOnly bool) (*models.Order, error) {
	var (
		changes  []inventory.StockChange
		restored int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stock := s.stock.WithTx(tx)

		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if ownerOnly && !actor.Owns(order.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, MsgCancelNotAllowed)
		}
		if order.Status != enums.OrderStatusPending {
			return stateConflict(MsgOnlyPendingCancel, order.Status)
		}

		items, err := repo.ItemsForOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		lines := make([]inventory.Line, 0, len(items))
		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			lines = append(lines, inventory.Line{ProductID: *item.ProductID, Quantity: item.Quantity})
		}
		changes, restored, err = stock.CreditLines(ctx, lines)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}

		return transition(ctx, repo, orderID, enums.OrderStatusCancelled, MsgOnlyPendingCancel)
	})
	if err != nil {
		return nil, asServiceError(err, "cancel order")
	}

	s.metrics.IncTransition(string(enums.OrderStatusCancelled), string(actor.Role))
	s.metrics.AddStockRestored(restored)

	order, err := s.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.OrderCancelled(ctx, *order, actor, s.now())
	s.notifier.LowStock(ctx, changes)
	return order, nil
}

func (s *service) ListForAdmin(ctx context.Context, actor auth.Actor, filters ListFilters) ([]OrderSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filters.UserID = nil
	return s.list(ctx, filters)
}

func (s *service) ListForCustomer(ctx context.Context, actor auth.Actor, filters ListFilters) ([]OrderSummary, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID := actor.UserID
	filters.UserID = &userID
	return s.list(ctx, filters)
}

func (s *service) DetailForAdmin(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	order, err := s.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderDetail(*order), nil
}

// DetailForCustomer reports someone else's order as not found so that its
// existence does not leak.
func (s *service) DetailForCustomer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgOrderNotFound)
	}
	return NewOrderDetail(*order), nil
}

func (s *service) list(ctx context.Context, filters ListFilters) ([]OrderSummary, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, err := s.repo.ListOrders(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewOrderSummary(row))
	}
	return out, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgOrderNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgOrderNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

func transition(ctx context.Context, repo Repository, orderID uuid.UUID, to enums.OrderStatus, conflictMsg string) error {
	ok, err := repo.TransitionStatus(ctx, orderID, enums.OrderStatusPending, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, conflictMsg)
	}
	return nil
}

func stateConflict(msg string, current enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(map[string]any{
		"status": current.String(),
	})
}

func requireAdmin(actor auth.Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Administrator access required.")
	}
	return nil
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
