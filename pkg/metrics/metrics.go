package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_operations_total",
			Help: "Total lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hutch_operation_duration_seconds",
			Help:    "Duration of lifecycle operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// External tool metrics
	ExternalCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hutch_external_command_duration_seconds",
			Help:    "Duration of external command invocations by binary",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"binary"},
	)

	// Template metrics
	TemplatesCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_templates_cached",
			Help: "Number of templates tracked by the template cache",
		},
	)

	TemplateBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hutch_template_bytes",
			Help: "Total size of cached templates in bytes",
		},
	)
)

// Register registers all metrics with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		OperationsTotal,
		OperationDuration,
		ExternalCommandDuration,
		TemplatesCached,
		TemplateBytes,
	)
}

// Handler returns an HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records one lifecycle operation outcome
func RecordOperation(operation string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(seconds)
}
