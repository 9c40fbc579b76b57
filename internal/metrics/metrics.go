// Package metrics counts alert evaluations, triggers and deliveries.
//
// Recorder is implemented by Prometheus (exposed on /metrics) and by Nop,
// used when metrics are disabled and in tests.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcome labels.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Recorder receives alert engine events.
type Recorder interface {
	// AlertEvaluated counts one alert whose conditions were evaluated.
	AlertEvaluated(kpiID string)
	// AlertTriggered counts one alert that fired.
	AlertTriggered(kpiID string)
	// DeliveryResult counts one notification attempt by outcome.
	DeliveryResult(outcome string)
	// ScanFailed counts one alert check that ended in an error.
	ScanFailed()
}

// Nop discards every event.
type Nop struct{}

func (Nop) AlertEvaluated(string) {}
func (Nop) AlertTriggered(string) {}
func (Nop) DeliveryResult(string) {}
func (Nop) ScanFailed()           {}

// Prometheus keeps counters in a private registry.
type Prometheus struct {
	registry   *prometheus.Registry
	evaluated  *prometheus.CounterVec
	triggered  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	scanErrors prometheus.Counter
}

// NewPrometheus registers the alert counters:
//   - alerts_evaluated_total{kpi_id}
//   - alerts_triggered_total{kpi_id}
//   - alerts_deliveries_total{outcome}
//   - alerts_scan_failures_total
func NewPrometheus() (*Prometheus, error) {
	registry := prometheus.NewRegistry()

	p := &Prometheus{
		registry: registry,
		evaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "evaluated_total",
			Help:      "Alerts whose conditions were evaluated against a measurement",
		}, []string{"kpi_id"}),
		triggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "triggered_total",
			Help:      "Alerts that fired",
		}, []string{"kpi_id"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "deliveries_total",
			Help:      "Alert notification attempts by outcome",
		}, []string{"outcome"}),
		scanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "scan_failures_total",
			Help:      "Alert checks that ended in an error",
		}),
	}

	collectors := []prometheus.Collector{p.evaluated, p.triggered, p.deliveries, p.scanErrors}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) AlertEvaluated(kpiID string) { p.evaluated.WithLabelValues(kpiID).Inc() }
func (p *Prometheus) AlertTriggered(kpiID string) { p.triggered.WithLabelValues(kpiID).Inc() }
func (p *Prometheus) DeliveryResult(outcome string) {
	p.deliveries.WithLabelValues(outcome).Inc()
}
func (p *Prometheus) ScanFailed() { p.scanErrors.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
