package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Dispatcher accepts notification events. It decides nothing about when to
// notify; callers do that and call Dispatch after their own commit.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type storeDispatcher struct {
	tx     txRunner
	repo   Repository
	outbox outboxEmitter
}

// NewStoreDispatcher writes one inbox row per recipient and queues one outbox
// event for the delivery transport, both in a single transaction.
func NewStoreDispatcher(tx txRunner, repo Repository, emitter outboxEmitter) (Dispatcher, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &storeDispatcher{tx: tx, repo: repo, outbox: emitter}, nil
}

func (d *storeDispatcher) Dispatch(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification event")
	}
	recipients := uniqueRecipients(event.Recipients)
	if len(recipients) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, models.Notification{
			UserID:  userID,
			Kind:    event.Kind,
			Title:   event.Title,
			Message: event.Message,
			Payload: event.Payload,
		})
	}

	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return fmt.Errorf("insert notifications: %w", err)
		}
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Data: payloads.NotificationRequestedEvent{
				Kind:       event.Kind,
				Audience:   event.Audience,
				Recipients: recipients,
				Title:      event.Title,
				Message:    event.Message,
				Payload:    event.Payload,
			},
		})
	})
}

func uniqueRecipients(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
