// Package metrics exports reconciliation progress to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/inventory-metafields/internal/port"
)

// Prometheus implements port.Metrics.
type Prometheus struct {
	pages    prometheus.Counter
	products *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

var _ port.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the reconciler metrics on reg (prometheus.DefaultRegisterer if nil).
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "inventory_metafields"
	}

	p := &Prometheus{
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "pages_fetched_total",
			Help:      "Product pages fetched from the catalog.",
		}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "products_total",
			Help:      "Products reconciled by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Finished reconciliation runs by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "Wall time of reconciliation runs.",
			Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1200, 3600},
		}),
	}
	reg.MustRegister(p.pages, p.products, p.runs, p.duration)

	for _, outcome := range []string{port.OutcomeUpdated, port.OutcomeSkipped, port.OutcomeDryRun} {
		p.products.WithLabelValues(outcome)
	}
	return p
}

func (p *Prometheus) PageFetched() {
	p.pages.Inc()
}

func (p *Prometheus) ProductReconciled(outcome string) {
	p.products.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RunFinished(status string, duration time.Duration) {
	p.runs.WithLabelValues(status).Inc()
	p.duration.Observe(duration.Seconds())
}
