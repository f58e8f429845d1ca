package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubReporter struct {
	from, to time.Time
	out      []reports.CreatorReport
	err      error
}

func (s *stubReporter) AggregateForPeriodByCreator(_ context.Context, from, to time.Time) ([]reports.CreatorReport, error) {
	s.from, s.to = from, to
	return s.out, s.err
}

type recordingDispatcher struct {
	events []notifications.Event
	failOn uuid.UUID
}

func (r *recordingDispatcher) Dispatch(_ context.Context, event notifications.Event) error {
	if event.AggregateID == r.failOn {
		return errors.New("dispatch failed")
	}
	r.events = append(r.events, event)
	return nil
}

func creatorReport(name string, email *string, total string, orders int) reports.CreatorReport {
	return reports.CreatorReport{
		Creator:     models.User{ID: uuid.New(), Name: name, Email: email, Role: enums.UserRoleAdmin},
		TotalSales:  decimal.RequireFromString(total),
		TotalOrders: orders,
		Products: []reports.ProductSales{
			{ProductID: uuid.New(), Name: "Mug", Quantity: 1, TotalSales: decimal.RequireFromString("4.25")},
		},
	}
}

func newDailyJob(t *testing.T, rep *stubReporter, dispatcher *recordingDispatcher, loc *time.Location, now time.Time) *dailySalesReportJob {
	t.Helper()
	jobIface, err := NewDailySalesReportJob(DailySalesReportJobParams{
		Logger:     logger.Nop(),
		Reports:    rep,
		Dispatcher: dispatcher,
		Location:   loc,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*dailySalesReportJob)
	job.now = func() time.Time { return now }
	return job
}

func TestDailySalesReportUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC) // 22:00 on the 10th locally
	email := "ana@example.com"
	rep := &stubReporter{out: []reports.CreatorReport{creatorReport("ana", &email, "54.50", 2)}}
	dispatcher := &recordingDispatcher{}

	if err := newDailyJob(t, rep, dispatcher, loc, now).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, loc); !rep.from.Equal(want) {
		t.Fatalf("expected window start %s, got %s", want, rep.from)
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one report, got %d", len(dispatcher.events))
	}
	event := dispatcher.events[0]
	if event.Kind != enums.NotificationKindDailySalesReport {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.Payload["report_name"] != "Daily_Sales_Report_2026-03-10" {
		t.Fatalf("unexpected report name %q", event.Payload["report_name"])
	}
	if event.Payload["total_sales"] != "54.50" || event.Payload["total_orders"] != "2" {
		t.Fatalf("unexpected payload %+v", event.Payload)
	}
	if event.Payload["products.0.name"] != "Mug" || event.Payload["products.0.quantity"] != "1" ||
		event.Payload["products.0.total_sales"] != "4.25" {
		t.Fatalf("expected product breakdown in payload, got %+v", event.Payload)
	}
}

func TestDailySalesReportSkipsCreatorsWithoutEmail(t *testing.T) {
	email := "bruno@example.com"
	blank := "  "
	rep := &stubReporter{out: []reports.CreatorReport{
		creatorReport("ana", nil, "10.00", 1),
		creatorReport("bruno", &email, "17.00", 1),
		creatorReport("cleo", &blank, "3.00", 1),
	}}
	dispatcher := &recordingDispatcher{}

	if err := newDailyJob(t, rep, dispatcher, nil, time.Now()).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dispatcher.events) != 1 || dispatcher.events[0].Payload["creator_name"] != "bruno" {
		t.Fatalf("expected only bruno's report, got %+v", dispatcher.events)
	}
}

func TestDailySalesReportNoSalesSendsNothing(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	if err := newDailyJob(t, &stubReporter{}, dispatcher, nil, time.Now()).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dispatcher.events) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(dispatcher.events))
	}
}

func TestDailySalesReportKeepsGoingAfterDispatchFailure(t *testing.T) {
	a, b := "a@example.com", "b@example.com"
	first := creatorReport("ana", &a, "1.00", 1)
	second := creatorReport("bruno", &b, "2.00", 1)
	rep := &stubReporter{out: []reports.CreatorReport{first, second}}
	dispatcher := &recordingDispatcher{failOn: first.Creator.ID}

	err := newDailyJob(t, rep, dispatcher, nil, time.Now()).Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated dispatch error")
	}
	if len(dispatcher.events) != 1 || dispatcher.events[0].AggregateID != second.Creator.ID {
		t.Fatalf("second creator should still be sent, got %+v", dispatcher.events)
	}
}

func TestDailySalesReportAggregationError(t *testing.T) {
	rep := &stubReporter{err: errors.New("db down")}
	if err := newDailyJob(t, rep, &recordingDispatcher{}, nil, time.Now()).Run(context.Background()); err == nil {
		t.Fatal("expected aggregation error")
	}
}
