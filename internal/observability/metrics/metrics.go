package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the money- and goods-moving operations of the system.
type Metrics struct {
	Registry *prometheus.Registry

	transactions *prometheus.CounterVec
	labels       *prometheus.CounterVec
	fulfillments *prometheus.CounterVec
	carrierCalls *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cargovera_ledger_transactions_total",
			Help: "Ledger transactions committed, by type.",
		}, []string{"type"}),
		labels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cargovera_labels_total",
			Help: "Label lifecycle events, by carrier and action.",
		}, []string{"carrier", "action"}),
		fulfillments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cargovera_fulfillments_total",
			Help: "Fulfillment request events, by action.",
		}, []string{"action"}),
		carrierCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cargovera_carrier_calls_total",
			Help: "Outbound carrier API calls, by carrier, operation and outcome.",
		}, []string{"carrier", "op", "outcome"}),
	}
}

func (m *Metrics) RecordTransaction(transType string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(transType).Inc()
}

func (m *Metrics) RecordLabel(carrier, action string) {
	if m == nil {
		return
	}
	m.labels.WithLabelValues(carrier, action).Inc()
}

func (m *Metrics) RecordFulfillment(action string) {
	if m == nil {
		return
	}
	m.fulfillments.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordCarrierCall(carrier, op, outcome string) {
	if m == nil {
		return
	}
	m.carrierCalls.WithLabelValues(carrier, op, outcome).Inc()
}
