package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, title string) models.Notification {
	t.Helper()
	rows := []models.Notification{{UserID: userID, Kind: enums.NotificationKindNewOrder, Title: title, Message: "m"}}
	if err := repo.CreateBatch(context.Background(), rows); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return rows[0]
}

func TestServiceMarkReadScopedToActor(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	owner := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	other := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	row := seedNotification(t, repo, owner.UserID, "hello")

	err = svc.MarkRead(context.Background(), other, row.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign notification, got %v", err)
	}

	if err := svc.MarkRead(context.Background(), owner, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// A second call is a no-op, not an error.
	if err := svc.MarkRead(context.Background(), owner, row.ID); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}

	unread, err := svc.List(context.Background(), owner, ListParams{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread rows, got %d", len(unread))
	}
}

func TestServiceMarkAllRead(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, _ := NewService(repo)

	actor := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	seedNotification(t, repo, actor.UserID, "a")
	seedNotification(t, repo, actor.UserID, "b")
	seedNotification(t, repo, uuid.New(), "someone else")

	count, err := svc.MarkAllRead(context.Background(), actor)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows updated, got %d", count)
	}

	all, err := svc.List(context.Background(), actor, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows for actor, got %d", len(all))
	}
	for _, row := range all {
		if row.ReadAt == nil {
			t.Fatalf("expected %s to be read", row.Title)
		}
	}
}

func TestServiceRequiresActor(t *testing.T) {
	svc, _ := NewService(NewRepository(dbtest.Open(t)))
	if _, err := svc.List(context.Background(), auth.Actor{}, ListParams{}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: defaultListLimit, -3: defaultListLimit, 10: 10, 5000: maxListLimit}
	for in, want := range cases {
		if got := normalizeLimit(in); got != want {
			t.Fatalf("normalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
