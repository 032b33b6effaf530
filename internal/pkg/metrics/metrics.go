package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transport_billing"

// BillingMetrics counts bill lifecycle outcomes. A nil *BillingMetrics is
// valid and records nothing.
type BillingMetrics struct {
	billsCreated    prometheus.Counter
	billsExported   prometheus.Counter
	numberConflicts prometheus.Counter
	exportFailures  prometheus.Counter
}

// New registers the billing counters on registerer, falling back to the
// default registerer when nil.
func New(registerer prometheus.Registerer) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &BillingMetrics{
		billsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Bills persisted with a freshly issued bill number.",
		}),
		billsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_exported_total",
			Help:      "Bills rendered to PDF.",
		}),
		numberConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_number_conflicts_total",
			Help:      "Bill number uniqueness violations seen while creating bills.",
		}),
		exportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_failures_total",
			Help:      "PDF renders that failed or produced no output.",
		}),
	}

	registerer.MustRegister(m.billsCreated, m.billsExported, m.numberConflicts, m.exportFailures)
	return m
}

func (m *BillingMetrics) BillCreated() {
	if m == nil {
		return
	}
	m.billsCreated.Inc()
}

func (m *BillingMetrics) BillExported() {
	if m == nil {
		return
	}
	m.billsExported.Inc()
}

func (m *BillingMetrics) NumberConflict() {
	if m == nil {
		return
	}
	m.numberConflicts.Inc()
}

func (m *BillingMetrics) ExportFailed() {
	if m == nil {
		return
	}
	m.exportFailures.Inc()
}
