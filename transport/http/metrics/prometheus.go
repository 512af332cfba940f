package metrics

import (
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kochabx/gmkit/core/crypto/sm2"
)

var _ sm2.Observer = (*Prometheus)(nil)

// Prom is the process-wide registry served by the HTTP server.
var Prom = New()

// Prometheus holds a registry together with the SM2 operation metrics.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sm2_operations_total",
			Help: "SM2 operations by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sm2_operation_duration_seconds",
			Help:    "SM2 operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"operation"}),
	}
	p.registry.MustRegister(p.operations, p.duration)
	return p
}

// ObserveOperation implements sm2.Observer.
func (p *Prometheus) ObserveOperation(operation string, success bool, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	p.operations.WithLabelValues(operation, result).Inc()
	p.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (p *Prometheus) WithGoCollectorRuntimeMetrics() {
	p.registry.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
	))
}

func (p *Prometheus) WithBuildInfoCollector() {
	p.registry.MustRegister(collectors.NewBuildInfoCollector())
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
