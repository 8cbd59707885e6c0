// Package metrics provides Prometheus metrics collection for the resale price
// service. It defines the prediction, HTTP and storage metrics exposed via the
// Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	MLPredictions    prometheus.Counter   // Total number of predictions made
	MLFailures       prometheus.Counter   // Predictions that ended in an error result
	MLNotSellable    prometheus.Counter   // Predictions that hit the sellability floor
	MLCapped         prometheus.Counter   // Predictions clamped to the original price
	MLModelAge       prometheus.Gauge     // Age of the loaded model in seconds
	MLLatency        prometheus.Histogram // Prediction latency in seconds
	MLPredictedPrice prometheus.Histogram // Distribution of priced results

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration *prometheus.HistogramVec // Handler duration by route

	// System metrics
	StorageErrors prometheus.Counter // Failed writes to the prediction log
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of price predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of price predictions that failed",
		}),
		MLNotSellable: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_not_sellable_total",
			Help: "Total number of items predicted as not sellable",
		}),
		MLCapped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_capped_total",
			Help: "Total number of predictions capped at the original price",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the current model in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		MLPredictedPrice: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_predicted_price",
			Help:    "Distribution of predicted prices in the output currency",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		StorageErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "storage_errors_total",
			Help: "Total number of failed prediction log writes",
		}),
	}
}
