package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BallotMetrics counts dispatched ballot operations by outcome.
type BallotMetrics struct {
	operations *prometheus.CounterVec

	registerOnce sync.Once
}

// Register registers the collectors with registry. A nil registry is a
// no-op; later calls after the first registration are no-ops.
func (m *BallotMetrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.operations = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ballot_operations_total",
			Help: "Total number of ballot operations by operation and outcome",
		}, []string{"operation", "outcome"})
	})
}

// ObserveOperation implements ports.OperationObserver.
func (m *BallotMetrics) ObserveOperation(operation string, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors next to the ballot metrics.
func NewRegistry() (*prometheus.Registry, *BallotMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := &BallotMetrics{}
	metrics.Register(registry)
	return registry, metrics
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
