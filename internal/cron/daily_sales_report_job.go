package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type DailySalesReportJobParams struct {
	Logger     *logger.Logger
	Reports    creatorReporter
	Dispatcher notifications.Dispatcher
	// Location decides where "today" starts and ends. Defaults to UTC.
	Location *time.Location
}

type creatorReporter interface {
	AggregateForPeriodByCreator(ctx context.Context, from, to time.Time) ([]reports.CreatorReport, error)
}

// NewDailySalesReportJob sends every product creator the day's sales of
// their products.
func NewDailySalesReportJob(params DailySalesReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("reports service required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &dailySalesReportJob{
		logg:       params.Logger,
		reports:    params.Reports,
		dispatcher: params.Dispatcher,
		loc:        loc,
		now:        time.Now,
	}, nil
}

type dailySalesReportJob struct {
	logg       *logger.Logger
	reports    creatorReporter
	dispatcher notifications.Dispatcher
	loc        *time.Location
	now        func() time.Time
}

func (j *dailySalesReportJob) Name() string { return "daily-sales-report" }

func (j *dailySalesReportJob) Run(ctx context.Context) error {
	from, to := reports.DayWindow(j.now(), j.loc)
	creators, err := j.reports.AggregateForPeriodByCreator(ctx, from, to)
	if err != nil {
		return fmt.Errorf("aggregate daily sales: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"report_name": notifications.ReportName(from),
		"creators":    len(creators),
	})
	if len(creators) == 0 {
		j.logg.Info(logCtx, "no sales today; nothing to send")
		return nil
	}

	var errs error
	sent, skipped := 0, 0
	for _, creator := range creators {
		if creator.Creator.Email == nil || strings.TrimSpace(*creator.Creator.Email) == "" {
			skipped++
			continue
		}
		lines := make([]notifications.ReportLine, 0, len(creator.Products))
		for _, product := range creator.Products {
			lines = append(lines, notifications.ReportLine{
				Name:       product.Name,
				Quantity:   product.Quantity,
				TotalSales: product.TotalSales,
			})
		}
		event := notifications.DailySalesReportEvent(notifications.DailySalesReport{
			Creator:     creator.Creator,
			Date:        from,
			TotalSales:  creator.TotalSales,
			TotalOrders: creator.TotalOrders,
			Products:    lines,
		})
		if err := j.dispatcher.Dispatch(ctx, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("creator %s: %w", creator.Creator.ID, err))
			continue
		}
		sent++
	}

	logCtx = j.logg.WithFields(logCtx, map[string]any{"sent": sent, "skipped": skipped})
	j.logg.Info(logCtx, "daily sales report dispatched")
	return errs
}
