package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AdminSalesReport aggregates completed orders in [from, to]. Both bounds
// default to today in loc; plain dates cover the whole day.
func AdminSalesReport(svc reports.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reports")
			return
		}
		todayFrom, todayTo := reports.DayWindow(time.Now(), loc)

		from, ok, err := validators.ParseQueryTime(r, "from", loc, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			from = todayFrom
		}
		to, ok, err := validators.ParseQueryTime(r, "to", loc, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			to = todayTo
		}
		if from.After(to) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to"))
			return
		}

		totals, err := svc.AggregateForPeriod(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		creators, err := svc.AggregateForPeriodByCreator(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reports.NewSalesReportDTO(from, to, totals, creators))
	}
}
