// Package metrics exposes the Prometheus collectors of a view.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boutique"

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	salesRecorded *prometheus.CounterVec
	revenue       prometheus.Counter
	refreshes     *prometheus.CounterVec
	ledgerSize    prometheus.Gauge
	httpRequests  *prometheus.CounterVec
}

// New registers the collectors on reg, along with the Go and process collectors.
func New(reg prometheus.Registerer) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		salesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Sales recorded by this view, by payment method.",
		}, []string{"payment"}),
		revenue: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_recorded_euros_total",
			Help:      "Revenue of the sales recorded by this view.",
		}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_refreshes_total",
			Help:      "Ledger reloads, by trigger.",
		}, []string{"trigger"}),
		ledgerSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_sales",
			Help:      "Sales held in memory after the last reload or append.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
}

// SaleRecorded counts one new sale and its amount.
func (m *Metrics) SaleRecorded(payment string, amount float64, ledgerSize int) {
	if m == nil {
		return
	}
	m.salesRecorded.WithLabelValues(payment).Inc()
	m.revenue.Add(amount)
	m.ledgerSize.Set(float64(ledgerSize))
}

// Refreshed counts one reload of the ledger.
func (m *Metrics) Refreshed(trigger string, ledgerSize int) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(trigger).Inc()
	m.ledgerSize.Set(float64(ledgerSize))
}

// Request counts one served HTTP request.
func (m *Metrics) Request(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}
