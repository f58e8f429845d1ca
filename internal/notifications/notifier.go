package notifications

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	dispatchResultOK      = "ok"
	dispatchResultFailed  = "failed"
	dispatchResultSkipped = "skipped"
)

type userLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

// Notifier runs after a successful commit and turns domain outcomes into
// dispatched events. Every method is fire-and-forget: failures are logged
// and counted, never returned.
type Notifier struct {
	dispatcher Dispatcher
	admins     users.AdminResolver
	users      userLookup
	policy     inventory.Policy
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
}

// NotifierParams bundles Notifier collaborators.
type NotifierParams struct {
	Dispatcher Dispatcher
	Admins     users.AdminResolver
	Users      userLookup
	Policy     inventory.Policy
	Metrics    *metrics.OrderMetrics
	Logger     *logger.Logger
}

// NewNotifier validates collaborators. Metrics are optional.
func NewNotifier(params NotifierParams) (*Notifier, error) {
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification dispatcher required")
	}
	if params.Admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin resolver required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users lookup required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Notifier{
		dispatcher: params.Dispatcher,
		admins:     params.Admins,
		users:      params.Users,
		policy:     params.Policy,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// Policy exposes the low-stock thresholds in use.
func (n *Notifier) Policy() inventory.Policy {
	return n.policy
}

// NewOrder tells every admin about a placed order.
func (n *Notifier) NewOrder(ctx context.Context, order models.Order) {
	admins, err := n.admins.ResolveAdmins(ctx)
	if err != nil {
		n.fail(ctx, enums.NotificationKindNewOrder, order.ID, "resolve admins failed", err)
		return
	}
	n.dispatch(ctx, NewOrderEvent(order, admins))
}

// OrderCancelled notifies the counterparty of a cancellation. An admin
// cancellation reaches the owner; a customer cancellation reaches the admins.
func (n *Notifier) OrderCancelled(ctx context.Context, order models.Order, actor auth.Actor, at time.Time) {
	by := CancelledBy{UserID: actor.UserID, Name: actor.Name}
	if by.Name == "" {
		by.Name = string(actor.Role)
	}

	if actor.IsAdmin() {
		n.dispatch(ctx, OrderCancelledEvent(order, by, enums.AudienceOrderOwner, []uuid.UUID{order.UserID}, at))
		return
	}

	admins, err := n.admins.ResolveAdmins(ctx)
	if err != nil {
		n.fail(ctx, enums.NotificationKindOrderCancelled, order.ID, "resolve admins failed", err)
		return
	}
	n.dispatch(ctx, OrderCancelledEvent(order, by, enums.AudienceAllAdmins, admins, at))
}

// LowStock fires one event per change that crossed into the low band. Products
// without a creator, or whose creator is gone, are skipped.
func (n *Notifier) LowStock(ctx context.Context, changes []inventory.StockChange) {
	alerts := inventory.LowStockChanges(n.policy, changes)
	if len(alerts) == 0 {
		return
	}

	creatorIDs := make([]uuid.UUID, 0, len(alerts))
	for _, change := range alerts {
		if change.CreatorID != nil {
			creatorIDs = append(creatorIDs, *change.CreatorID)
		}
	}
	creators, err := n.users.FindByIDs(ctx, creatorIDs)
	if err != nil {
		n.fail(ctx, enums.NotificationKindLowStock, uuid.Nil, "load product creators failed", err)
		return
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].ProductID.String() < alerts[j].ProductID.String()
	})
	for _, change := range alerts {
		if change.CreatorID == nil {
			n.metrics.IncDispatch(string(enums.NotificationKindLowStock), dispatchResultSkipped)
			continue
		}
		creator, ok := creators[*change.CreatorID]
		if !ok {
			n.metrics.IncDispatch(string(enums.NotificationKindLowStock), dispatchResultSkipped)
			continue
		}
		n.dispatch(ctx, LowStockEvent(change.ProductID, change.Name, change.After, creator))
	}
}

func (n *Notifier) dispatch(ctx context.Context, event Event) {
	if err := n.dispatcher.Dispatch(ctx, event); err != nil {
		n.fail(ctx, event.Kind, event.AggregateID, "notification dispatch failed", err)
		return
	}
	n.metrics.IncDispatch(string(event.Kind), dispatchResultOK)
}

func (n *Notifier) fail(ctx context.Context, kind enums.NotificationKind, aggregateID uuid.UUID, msg string, err error) {
	n.metrics.IncDispatch(string(kind), dispatchResultFailed)
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"notification_kind": string(kind),
		"aggregate_id":      aggregateID.String(),
	})
	n.logg.Error(logCtx, msg, err)
}
