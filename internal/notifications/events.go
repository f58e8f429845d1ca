package notifications

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Event is one notification handed to the Dispatcher. Payload values are
// display-ready strings: ids, 2dp amounts, RFC 3339 timestamps, names.
type Event struct {
	Kind          enums.NotificationKind
	Audience      enums.NotificationAudience
	Recipients    []uuid.UUID
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Title         string
	Message       string
	Payload       map[string]string
}

// Validate rejects events the dispatcher cannot route.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("invalid notification kind %q", e.Kind)
	}
	if !e.Audience.IsValid() {
		return fmt.Errorf("invalid notification audience %q", e.Audience)
	}
	if !e.AggregateType.IsValid() {
		return fmt.Errorf("invalid aggregate type %q", e.AggregateType)
	}
	return nil
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func customerName(order models.Order) string {
	if order.User != nil && order.User.Name != "" {
		return order.User.Name
	}
	return "Customer"
}

// NewOrderEvent announces a freshly placed order to every admin.
func NewOrderEvent(order models.Order, admins []uuid.UUID) Event {
	return Event{
		Kind:          enums.NotificationKindNewOrder,
		Audience:      enums.AudienceAllAdmins,
		Recipients:    admins,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Title:         fmt.Sprintf("New order #%s", order.ID),
		Message:       fmt.Sprintf("Total: %s • Status: %s", formatAmount(order.TotalAmount), order.Status),
		Payload: map[string]string{
			"order_id":      order.ID.String(),
			"total_amount":  formatAmount(order.TotalAmount),
			"status":        string(order.Status),
			"customer_name": customerName(order),
			"placed_at":     formatTime(order.CreatedAt),
			"action_url":    "/admin/orders/" + order.ID.String(),
		},
	}
}

// CancelledBy names who performed a cancellation.
type CancelledBy struct {
	UserID uuid.UUID
	Name   string
}

// OrderCancelledEvent tells the other party that an order was cancelled.
// Admin cancellations go to the order owner; customer cancellations to admins.
func OrderCancelledEvent(order models.Order, by CancelledBy, audience enums.NotificationAudience, recipients []uuid.UUID, at time.Time) Event {
	actionURL := "/orders/" + order.ID.String()
	if audience == enums.AudienceAllAdmins {
		actionURL = "/admin/orders/" + order.ID.String()
	}
	return Event{
		Kind:          enums.NotificationKindOrderCancelled,
		Audience:      audience,
		Recipients:    recipients,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Title:         fmt.Sprintf("Order #%s cancelled", order.ID),
		Message:       fmt.Sprintf("Cancelled by %s • Total: %s", by.Name, formatAmount(order.TotalAmount)),
		Payload: map[string]string{
			"order_id":        order.ID.String(),
			"total_amount":    formatAmount(order.TotalAmount),
			"status":          string(enums.OrderStatusCancelled),
			"customer_name":   customerName(order),
			"cancelled_by":    by.Name,
			"cancelled_by_id": by.UserID.String(),
			"cancelled_at":    formatTime(at),
			"action_url":      actionURL,
		},
	}
}

// LowStockEvent warns a product's creator that stock is running out.
func LowStockEvent(productID uuid.UUID, productName string, remaining int, creator models.User) Event {
	payload := map[string]string{
		"product_id":     productID.String(),
		"product_name":   productName,
		"stock_quantity": strconv.Itoa(remaining),
		"creator_name":   creator.Name,
	}
	if creator.Email != nil {
		payload["creator_email"] = *creator.Email
	}
	return Event{
		Kind:          enums.NotificationKindLowStock,
		Audience:      enums.AudienceProductCreator,
		Recipients:    []uuid.UUID{creator.ID},
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Title:         "Low stock: " + productName,
		Message:       fmt.Sprintf("Remaining stock: %d", remaining),
		Payload:       payload,
	}
}

// ReportLine is one product's row in a daily report.
type ReportLine struct {
	Name       string
	Quantity   int
	TotalSales decimal.Decimal
}

// DailySalesReport carries one creator's slice of the daily report.
type DailySalesReport struct {
	Creator     models.User
	Date        time.Time
	TotalSales  decimal.Decimal
	TotalOrders int
	Products    []ReportLine
}

// ReportName is the stable name of a daily report for date.
func ReportName(date time.Time) string {
	return "Daily_Sales_Report_" + date.Format("2006-01-02")
}

// DailySalesReportEvent addresses a creator's daily totals to that creator.
func DailySalesReportEvent(report DailySalesReport) Event {
	name := ReportName(report.Date)
	payload := map[string]string{
		"report_name":   name,
		"report_date":   report.Date.Format("2006-01-02"),
		"creator_id":    report.Creator.ID.String(),
		"creator_name":  report.Creator.Name,
		"total_sales":   formatAmount(report.TotalSales),
		"total_orders":  strconv.Itoa(report.TotalOrders),
		"product_count": strconv.Itoa(len(report.Products)),
	}
	if report.Creator.Email != nil {
		payload["creator_email"] = *report.Creator.Email
	}
	// Payloads stay flat: the breakdown is spread over indexed keys.
	for i, line := range report.Products {
		prefix := "products." + strconv.Itoa(i) + "."
		payload[prefix+"name"] = line.Name
		payload[prefix+"quantity"] = strconv.Itoa(line.Quantity)
		payload[prefix+"total_sales"] = formatAmount(line.TotalSales)
	}
	return Event{
		Kind:          enums.NotificationKindDailySalesReport,
		Audience:      enums.AudienceProductCreator,
		Recipients:    []uuid.UUID{report.Creator.ID},
		AggregateType: enums.AggregateSalesReport,
		AggregateID:   report.Creator.ID,
		Title:         name,
		Message:       fmt.Sprintf("Total sales: %s • Orders: %d", formatAmount(report.TotalSales), report.TotalOrders),
		Payload:       payload,
	}
}
