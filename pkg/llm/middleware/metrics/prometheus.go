package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal    *prometheus.CounterVec
	tokensTotal      *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	imagesTotal      *prometheus.CounterVec
	workflowOutcomes *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder registered with reg.
// Passing nil registers with the default registry served on /metrics.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_provider_requests_total",
				Help: "Total number of generative provider requests by model, operation and status",
			},
			[]string{"model", "operation", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_provider_tokens_total",
				Help: "Estimated tokens used in text completion requests",
			},
			[]string{"model", "operation", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solar_provider_request_duration_seconds",
				Help:    "Duration of generative provider requests in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"model", "operation"},
		),
		imagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_provider_images_total",
				Help: "Total number of images returned by the image model",
			},
			[]string{"model", "operation"},
		),
		workflowOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_workflow_operations_total",
				Help: "Workflow operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// ObserveRequest records metrics for a completed text completion.
func (p *PrometheusRecorder) ObserveRequest(
	model, operation string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, operation, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, operation, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, operation, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

// ObserveImages records metrics for a completed image generation call.
func (p *PrometheusRecorder) ObserveImages(model, operation string, images int, success bool, errorType string, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, operation, status, errorType).Inc()
	if success {
		p.imagesTotal.WithLabelValues(model, operation).Add(float64(images))
	}
	p.requestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

// ObserveWorkflow counts a workflow operation outcome.
func (p *PrometheusRecorder) ObserveWorkflow(operation, outcome string) {
	p.workflowOutcomes.WithLabelValues(operation, outcome).Inc()
}
