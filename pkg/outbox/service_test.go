package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), db.Config())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	orderID := uuid.New()
	data := payloads.NotificationRequestedEvent{
		Kind:     enums.NotificationKindNewOrder,
		Audience: enums.AudienceAllAdmins,
		Title:    "New order",
		Payload:  map[string]string{"order_id": orderID.String()},
	}
	err := db.Wrap(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          data,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	env, err := DecodeEnvelope(rows[0].Payload)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 || env.EventType != enums.EventNotificationRequested {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var decoded payloads.NotificationRequestedEvent
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded.Payload["order_id"] != orderID.String() {
		t.Fatalf("payload lost order id: %+v", decoded)
	}
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	err := db.Wrap(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected abort error")
	}
	rows, err := repo.FetchUnpublished(10, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected rollback to drop event, got %d rows", len(rows))
	}
}

func TestEmitRequiresTx(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventNotificationRequested}); err == nil {
		t.Fatal("expected missing tx to fail")
	}
}

func TestMarkFailedAndAttemptsFilter(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	row := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	if err := repo.Insert(conn, row); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := repo.FetchUnpublished(10, 2)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected 1 pending row, got %d (%v)", len(rows), err)
	}
	id := rows[0].ID

	for i := 0; i < 2; i++ {
		if err := repo.MarkFailed(id, errors.New("unavailable")); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}
	rows, err = repo.FetchUnpublished(10, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected exhausted row to be skipped, got %d", len(rows))
	}

	if err := repo.MarkPublished(id); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	rows, err = repo.FetchUnpublished(10, 0)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no unpublished rows, got %d (%v)", len(rows), err)
	}
}
