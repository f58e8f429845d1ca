package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order lifecycle outcomes.
type OrderMetrics struct {
	checkouts     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stockRestored prometheus.Counter
	dispatches    *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_transitions_total",
		Help: "Order status transitions by target status and actor role.",
	}, []string{"status", "role"})
	stockRestored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stock_restored_units_total",
		Help: "Units returned to stock by cancellations.",
	})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notification_dispatches_total",
		Help: "Notification dispatches by kind and result.",
	}, []string{"kind", "result"})
	reg.MustRegister(checkouts, transitions, stockRestored, dispatches)
	return &OrderMetrics{
		checkouts:     checkouts,
		transitions:   transitions,
		stockRestored: stockRestored,
		dispatches:    dispatches,
	}
}

// IncCheckout records a checkout outcome such as "ok" or an error code.
func (m *OrderMetrics) IncCheckout(result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncTransition records a status change performed by role.
func (m *OrderMetrics) IncTransition(status, role string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(role)).Inc()
}

// AddStockRestored adds restored units.
func (m *OrderMetrics) AddStockRestored(units int) {
	if m == nil || m.stockRestored == nil || units <= 0 {
		return
	}
	m.stockRestored.Add(float64(units))
}

// IncDispatch records a notification dispatch outcome.
func (m *OrderMetrics) IncDispatch(kind, result string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}
