package stresstest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "reqproc"

// Metrics holds pipeline counters on a private registry.
// The registry is written as a Prometheus textfile at the end of a run; nothing is served.
type Metrics struct {
	registry *prometheus.Registry

	requestsGenerated  prometheus.Counter
	responsesProcessed prometheus.Counter
	workerExits        prometheus.Counter
	drainTimeouts      prometheus.Counter
	runsTotal          *prometheus.CounterVec
	latency            prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_generated_total",
			Help:      "Requests pushed onto the request queue.",
		}),
		responsesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "responses_processed_total",
			Help:      "Responses drained by the collector.",
		}),
		workerExits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "worker_exits_total",
			Help:      "Workers that left their loop.",
		}),
		drainTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "drain_timeouts_total",
			Help:      "Collector waits that elapsed without a response.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "response_latency_milliseconds",
			Help:      "Response latency from request creation to workload completion.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),
	}

	m.registry.MustRegister(
		m.requestsGenerated,
		m.responsesProcessed,
		m.workerExits,
		m.drainTimeouts,
		m.runsTotal,
		m.latency,
	)

	return m
}

// Registry returns the registry holding the pipeline metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in Prometheus text format to path
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) observeResponse(latencyMs int64) {
	m.responsesProcessed.Inc()
	m.latency.Observe(float64(latencyMs))
}

func (m *Metrics) observeOutcome(outcome Outcome) {
	m.runsTotal.WithLabelValues(string(outcome)).Inc()
}
