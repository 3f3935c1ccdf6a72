package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	// TextfilePath is where a finished module run writes its samples for the
	// node_exporter textfile collector. Modules exit too quickly to be scraped.
	TextfilePath string `json:"textfile_path" yaml:"textfile_path" mapstructure:"textfile_path"`
}

// Collector manages all metrics for a module run
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	// QRadar API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	// Module metrics
	ReconcileActions *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	LastRunTime      *prometheus.GaugeVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		namespace: namespace,
		registry:  registry,
	}

	c.initializeMetrics()
	c.registerMetrics()

	return c
}

// initializeMetrics initializes all metrics
func (c *Collector) initializeMetrics() {
	c.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "api_requests_total",
			Help:      "Total number of QRadar API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "api_request_duration_seconds",
			Help:      "QRadar API request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	c.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"error_type", "component"},
	)

	c.ReconcileActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "reconcile_actions_total",
			Help:      "Reconciliation outcomes per module",
		},
		[]string{"module", "action", "check_mode"},
	)

	c.RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "module_run_duration_seconds",
			Help:      "Module run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"module", "status"},
	)

	c.LastRunTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "module_last_run_timestamp_seconds",
			Help:      "Unix time of the last module run",
		},
		[]string{"module"},
	)
}

// registerMetrics registers all metrics with the registry
func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.RequestsTotal)
	c.registry.MustRegister(c.RequestDuration)
	c.registry.MustRegister(c.ErrorsTotal)
	c.registry.MustRegister(c.ReconcileActions)
	c.registry.MustRegister(c.RunDuration)
	c.registry.MustRegister(c.LastRunTime)
}

// RecordAPIRequest records a QRadar API exchange
func (c *Collector) RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	c.RequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError records error metrics
func (c *Collector) RecordError(errorType, component string) {
	c.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordReconcileAction records the action a module decided on
func (c *Collector) RecordReconcileAction(module, action string, checkMode bool) {
	c.ReconcileActions.WithLabelValues(module, action, strconv.FormatBool(checkMode)).Inc()
}

// RecordRun records the duration and status of a whole module run
func (c *Collector) RecordRun(module, status string, duration time.Duration) {
	c.RunDuration.WithLabelValues(module, status).Observe(duration.Seconds())
	c.LastRunTime.WithLabelValues(module).SetToCurrentTime()
}

// WriteTextfile writes the registry in text exposition format to path.
// The write goes through a temp file and rename, so node_exporter never
// reads a partial file.
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer measures elapsed time for a metric observation
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed duration
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
