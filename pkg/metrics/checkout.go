package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CheckoutMetrics tracks cart mutations, order materialization and gateway callbacks.
type CheckoutMetrics struct {
	cartOps          *prometheus.CounterVec
	cartConflicts    prometheus.Counter
	orders           *prometheus.CounterVec
	orderDuration    prometheus.Histogram
	vouchersConsumed prometheus.Counter
	callbacks        *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	cartConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_version_conflicts_total",
		Help: "Cart saves rejected because another writer bumped the version.",
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Order materialization attempts by payment method and outcome.",
	}, []string{"payment_method", "outcome"})
	orderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_materialize_duration_seconds",
		Help:    "Time spent materializing an order.",
		Buckets: prometheus.DefBuckets,
	})
	vouchersConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vouchers_consumed_total",
		Help: "Voucher usages consumed by created orders.",
	})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment gateway callbacks by result.",
	}, []string{"result"})
	reg.MustRegister(cartOps, cartConflicts, orders, orderDuration, vouchersConsumed, callbacks)
	return &CheckoutMetrics{
		cartOps:          cartOps,
		cartConflicts:    cartConflicts,
		orders:           orders,
		orderDuration:    orderDuration,
		vouchersConsumed: vouchersConsumed,
		callbacks:        callbacks,
	}
}

// ObserveCartOp counts one cart mutation.
func (m *CheckoutMetrics) ObserveCartOp(op string, err error) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(op), outcome(err)).Inc()
}

// IncCartConflict counts a lost compare-and-swap on a cart row.
func (m *CheckoutMetrics) IncCartConflict() {
	if m == nil || m.cartConflicts == nil {
		return
	}
	m.cartConflicts.Inc()
}

// ObserveOrder records one order materialization attempt.
func (m *CheckoutMetrics) ObserveOrder(paymentMethod string, duration time.Duration, err error) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(paymentMethod), outcome(err)).Inc()
	m.orderDuration.Observe(duration.Seconds())
}

// IncVoucherConsumed counts a voucher usage committed with an order.
func (m *CheckoutMetrics) IncVoucherConsumed() {
	if m == nil || m.vouchersConsumed == nil {
		return
	}
	m.vouchersConsumed.Inc()
}

// IncCallback counts a gateway callback by its result label.
func (m *CheckoutMetrics) IncCallback(result string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(result)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
