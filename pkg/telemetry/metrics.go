package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for dbfarm.
type Metrics struct {
	config MetricsConfig

	// Pipeline metrics
	pipelinesExecuted *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec

	// Adapter metrics
	adapterCalls    *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec
	adapterErrors   *prometheus.CounterVec

	// Validation metrics
	validationRejections *prometheus.CounterVec

	// Inventory metrics
	activeInstances *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Pipeline metrics
		pipelinesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipelines_executed_total",
				Help:      "Total number of provisioning pipelines executed",
			},
			[]string{"operation", "engine", "outcome"},
		),
		pipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of provisioning pipeline execution in seconds",
				Buckets:   buckets,
			},
			[]string{"operation", "engine", "outcome"},
		),

		// Adapter metrics
		adapterCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_calls_total",
				Help:      "Total number of engine adapter calls",
			},
			[]string{"engine", "operation"},
		),
		adapterDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "adapter_call_duration_seconds",
				Help:      "Duration of engine adapter calls in seconds",
				Buckets:   buckets,
			},
			[]string{"engine", "operation"},
		),
		adapterErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_errors_total",
				Help:      "Total number of engine adapter errors",
			},
			[]string{"engine", "operation"},
		),

		// Validation metrics
		validationRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejections_total",
				Help:      "Total number of requests rejected during validation",
			},
			[]string{"code"},
		),

		// Inventory metrics
		activeInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_instances",
				Help:      "Current number of provisioned database instances",
			},
			[]string{"engine"},
		),
	}

	registry.MustRegister(
		m.pipelinesExecuted,
		m.pipelineDuration,
		m.adapterCalls,
		m.adapterDuration,
		m.adapterErrors,
		m.validationRejections,
		m.activeInstances,
	)

	return m, nil
}

// NopMetrics returns a metrics instance that records nothing.
func NopMetrics() *Metrics {
	return &Metrics{}
}

// Pipeline Metrics

// RecordPipeline records a completed provisioning pipeline with its outcome
// and duration.
func (m *Metrics) RecordPipeline(operation, engine, outcome string, duration time.Duration) {
	if m.pipelinesExecuted == nil {
		return
	}
	m.pipelinesExecuted.WithLabelValues(operation, engine, outcome).Inc()
	m.pipelineDuration.WithLabelValues(operation, engine, outcome).Observe(duration.Seconds())
}

// Adapter Metrics

// RecordAdapterCall records an engine adapter call with its duration.
func (m *Metrics) RecordAdapterCall(engine, operation string, duration time.Duration) {
	if m.adapterCalls == nil {
		return
	}
	m.adapterCalls.WithLabelValues(engine, operation).Inc()
	m.adapterDuration.WithLabelValues(engine, operation).Observe(duration.Seconds())
}

// RecordAdapterError records an engine adapter error.
func (m *Metrics) RecordAdapterError(engine, operation string) {
	if m.adapterErrors == nil {
		return
	}
	m.adapterErrors.WithLabelValues(engine, operation).Inc()
}

// Validation Metrics

// RecordValidationRejection records a request rejected during validation.
func (m *Metrics) RecordValidationRejection(code string) {
	if m.validationRejections == nil {
		return
	}
	m.validationRejections.WithLabelValues(code).Inc()
}

// Inventory Metrics

// SetActiveInstances sets the current number of provisioned instances for an
// engine.
func (m *Metrics) SetActiveInstances(engine string, count float64) {
	if m.activeInstances == nil {
		return
	}
	m.activeInstances.WithLabelValues(engine).Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
