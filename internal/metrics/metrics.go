// Package metrics exposes alert and parts-calculation counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/notifoxhq/notifox/pkg/segment"
)

const namespace = "notifox"

// Collector holds the counters. The zero value is not usable; call New.
type Collector struct {
	calculations *prometheus.CounterVec
	parts        *prometheus.CounterVec
	sends        *prometheus.CounterVec
	cost         *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// New registers the counters with reg. A nil reg gets a fresh registry,
// which keeps tests and multiple servers in one process apart.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parts_calculations_total",
			Help:      "Parts calculations performed, by encoding.",
		}, []string{"encoding"}),
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_parts_total",
			Help:      "SMS parts of successfully sent alerts, by encoding.",
		}, []string{"encoding"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert send attempts, by status.",
		}, []string{"status"}),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_cost_total",
			Help:      "Cost of sent alerts, by currency.",
		}, []string{"currency"}),
		gatherer: reg,
	}

	reg.MustRegister(c.calculations, c.parts, c.sends, c.cost)
	return c
}

// ObserveCalculation counts one parts calculation.
func (c *Collector) ObserveCalculation(r segment.Result) {
	c.calculations.WithLabelValues(r.Encoding.String()).Inc()
}

// ObserveSent counts a delivered alert with its billing.
func (c *Collector) ObserveSent(encoding string, parts int, cost float64, currency string) {
	c.sends.WithLabelValues("sent").Inc()
	c.parts.WithLabelValues(encoding).Add(float64(parts))
	c.cost.WithLabelValues(currency).Add(cost)
}

// ObserveFailed counts a delivery that did not go through.
func (c *Collector) ObserveFailed() {
	c.sends.WithLabelValues("failed").Inc()
}

// ObserveDenied counts an alert refused before sending, such as by a budget.
func (c *Collector) ObserveDenied() {
	c.sends.WithLabelValues("denied").Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
