package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMonitor records operation counts and latencies as prometheus metrics.
type MetricsMonitor struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetricsMonitor creates the collectors and registers them with reg.
func NewMetricsMonitor(reg prometheus.Registerer) (*MetricsMonitor, error) {
	m := &MetricsMonitor{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_operations_total",
				Help: "Engine operations by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptgate_operation_duration_seconds",
				Help:    "Time spent in engine operations, model calls included",
				Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 180},
			},
			[]string{"operation"},
		),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsMonitor) Start() error { return nil }
func (m *MetricsMonitor) Stop() error  { return nil }

// OnEvent counts the event and observes its duration.
func (m *MetricsMonitor) OnEvent(ev Event) {
	m.operations.WithLabelValues(ev.Operation, ev.Status).Inc()
	m.duration.WithLabelValues(ev.Operation).Observe(ev.Duration.Seconds())
}
