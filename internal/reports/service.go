package reports

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Totals is the store-wide sales figure for a period.
type Totals struct {
	TotalSales  decimal.Decimal
	TotalOrders int
}

// ProductSales is one product's contribution inside a creator bucket.
type ProductSales struct {
	ProductID  uuid.UUID
	Name       string
	Quantity   int
	TotalSales decimal.Decimal
}

// CreatorReport groups sales by the creator of the products sold. An order
// counts once per creator however many of their lines it holds.
type CreatorReport struct {
	Creator     models.User
	TotalSales  decimal.Decimal
	TotalOrders int
	Products    []ProductSales
}

// Service aggregates completed orders. It is read-only.
type Service interface {
	AggregateForPeriod(ctx context.Context, from, to time.Time) (Totals, error)
	AggregateForPeriodByCreator(ctx context.Context, from, to time.Time) ([]CreatorReport, error)
}

type orderReader interface {
	CompletedOrders(ctx context.Context, from, to time.Time) ([]models.Order, error)
	CompletedOrdersWithItems(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

type service struct {
	repo orderReader
}

func NewService(repo orderReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reports repository required")
	}
	return &service{repo: repo}, nil
}

// AggregateForPeriod sums order totals of completed orders in [from, to].
// No orders yields zero totals.
func (s *service) AggregateForPeriod(ctx context.Context, from, to time.Time) (Totals, error) {
	if emptyWindow(from, to) {
		return Totals{TotalSales: decimal.Zero}, nil
	}
	orders, err := s.repo.CompletedOrders(ctx, from, to)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed orders")
	}

	totals := Totals{TotalSales: decimal.Zero, TotalOrders: len(orders)}
	for _, order := range orders {
		totals.TotalSales = totals.TotalSales.Add(order.TotalAmount)
	}
	totals.TotalSales = totals.TotalSales.Round(2)
	return totals, nil
}

// AggregateForPeriodByCreator explodes completed orders into lines and
// groups them by product creator. Lines whose product was deleted or has no
// creator are left out, so the creator totals can add up to less than
// AggregateForPeriod.
func (s *service) AggregateForPeriodByCreator(ctx context.Context, from, to time.Time) ([]CreatorReport, error) {
	if emptyWindow(from, to) {
		return []CreatorReport{}, nil
	}
	orders, err := s.repo.CompletedOrdersWithItems(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed orders")
	}

	type bucket struct {
		report   CreatorReport
		orders   map[uuid.UUID]struct{}
		products map[uuid.UUID]*ProductSales
	}
	buckets := map[uuid.UUID]*bucket{}

	for _, order := range orders {
		for _, item := range order.Items {
			product := item.Product
			if product == nil || product.Creator == nil {
				continue
			}
			creator := *product.Creator

			b, ok := buckets[creator.ID]
			if !ok {
				b = &bucket{
					report:   CreatorReport{Creator: creator, TotalSales: decimal.Zero},
					orders:   map[uuid.UUID]struct{}{},
					products: map[uuid.UUID]*ProductSales{},
				}
				buckets[creator.ID] = b
			}
			b.report.TotalSales = b.report.TotalSales.Add(item.Subtotal)
			b.orders[order.ID] = struct{}{}

			line, ok := b.products[product.ID]
			if !ok {
				line = &ProductSales{ProductID: product.ID, Name: product.Name, TotalSales: decimal.Zero}
				b.products[product.ID] = line
			}
			line.Quantity += item.Quantity
			line.TotalSales = line.TotalSales.Add(item.Subtotal)
		}
	}

	out := make([]CreatorReport, 0, len(buckets))
	for _, b := range buckets {
		report := b.report
		report.TotalSales = report.TotalSales.Round(2)
		report.TotalOrders = len(b.orders)
		report.Products = make([]ProductSales, 0, len(b.products))
		for _, line := range b.products {
			line.TotalSales = line.TotalSales.Round(2)
			report.Products = append(report.Products, *line)
		}
		sort.Slice(report.Products, func(i, j int) bool {
			a, c := report.Products[i], report.Products[j]
			if a.Name != c.Name {
				return a.Name < c.Name
			}
			return a.ProductID.String() < c.ProductID.String()
		})
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i].Creator, out[j].Creator
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.ID.String() < c.ID.String()
	})
	return out, nil
}

// DayWindow returns the inclusive bounds of the calendar day containing t in
// loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// emptyWindow reports whether [from, to] cannot contain any order: a missing
// bound or an inverted range.
func emptyWindow(from, to time.Time) bool {
	return from.IsZero() || to.IsZero() || from.After(to)
}
