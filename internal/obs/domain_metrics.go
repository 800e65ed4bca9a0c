package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts session cart mutations by operation and result.
	CartMutationsTotal *prometheus.CounterVec
	// CheckoutsTotal counts checkout attempts by result.
	CheckoutsTotal *prometheus.CounterVec
	// ReconciliationsTotal counts payment reconciliations by outcome.
	ReconciliationsTotal *prometheus.CounterVec
	// KitchenTicketsTotal counts kitchen ticket tasks handled by the worker.
	KitchenTicketsTotal *prometheus.CounterVec
	// OrderTotalAmount records checked out order totals in currency units.
	OrderTotalAmount prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of session cart mutations by operation and result.",
		}, []string{"op", "result"})
		CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Count of checkout attempts by result.",
		}, []string{"result"})
		ReconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Count of payment reconciliations by outcome.",
		}, []string{"outcome"})
		KitchenTicketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kitchen_tickets_total",
			Help:      "Count of kitchen ticket tasks processed by the worker.",
		}, []string{"topic", "result"})
		OrderTotalAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Distribution of checked out order totals.",
			Buckets:   []float64{10, 25, 50, 100, 200, 500, 1000},
		})

		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutsTotal = v
			}
		})
		mustRegisterCollector(reg, ReconciliationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReconciliationsTotal = v
			}
		})
		mustRegisterCollector(reg, KitchenTicketsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				KitchenTicketsTotal = v
			}
		})
		mustRegisterCollector(reg, OrderTotalAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderTotalAmount = v
			}
		})
	})
}

// ObserveCartMutation records one cart mutation. It is a no-op until the
// domain metrics are registered.
func ObserveCartMutation(op string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveCheckout records a checkout attempt and, on success, the order total.
func ObserveCheckout(total float64, err error) {
	if CheckoutsTotal != nil {
		CheckoutsTotal.WithLabelValues(resultLabel(err)).Inc()
	}
	if err == nil && OrderTotalAmount != nil {
		OrderTotalAmount.Observe(total)
	}
}

// ObserveReconciliation records a reconciliation outcome.
func ObserveReconciliation(outcome string) {
	if ReconciliationsTotal == nil {
		return
	}
	ReconciliationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveKitchenTicket records a processed kitchen ticket.
func ObserveKitchenTicket(topic string, err error) {
	if KitchenTicketsTotal == nil {
		return
	}
	KitchenTicketsTotal.WithLabelValues(topic, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
