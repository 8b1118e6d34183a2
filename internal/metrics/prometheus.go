package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "netenum"

	subsystemScan   = "scan"
	subsystemProbe  = "probe"
	subsystemStore  = "store"
	subsystemAPI    = "api"
	subsystemSystem = "system"
)

// PrometheusMetrics holds all Prometheus metric collectors.
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal      *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	activeScans     prometheus.Gauge
	stageDuration   *prometheus.HistogramVec
	hostsDiscovered prometheus.Counter
	hostScans       *prometheus.CounterVec
	portScanPeak    prometheus.Gauge
	openPorts       prometheus.Counter

	// Probe metrics
	serviceProbes *prometheus.CounterVec
	screenshots   *prometheus.CounterVec

	// Store metrics
	persistErrors prometheus.Counter

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// System metrics
	goroutines prometheus.Gauge
	uptime     prometheus.Gauge

	startTime time.Time
	mu        sync.RWMutex
	registry  *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all
// collectors registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initAPIMetrics()
	pm.initSystemMetrics()
	pm.registerMetrics()

	pm.registry.MustRegister(collectors.NewGoCollector())
	pm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scan runs by status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of complete scan runs in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200, 14400},
		},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of scan runs in progress",
		},
	)

	pm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"stage"},
	)

	pm.hostsDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "hosts_discovered_total",
			Help:      "Total number of live hosts discovered",
		},
	)

	pm.hostScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "host_port_scans_total",
			Help:      "Total number of per-host port scans by status",
		},
		[]string{"status"},
	)

	pm.openPorts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "open_ports_total",
			Help:      "Total number of open ports found",
		},
	)

	pm.portScanPeak = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "port_scan_peak_hosts",
			Help:      "Highest number of hosts port-scanned concurrently in the last run",
		},
	)
}

func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.serviceProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "http_total",
			Help:      "Total number of HTTP service probes by result",
		},
		[]string{"result"},
	)

	pm.screenshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "screenshots_total",
			Help:      "Total number of screenshot renders by result",
		},
		[]string{"result"},
	)

	pm.persistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "persist_errors_total",
			Help:      "Total number of failed snapshot writes",
		},
	)
}

func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)
}

func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.activeScans,
		pm.stageDuration,
		pm.hostsDiscovered,
		pm.hostScans,
		pm.portScanPeak,
		pm.openPorts,
		pm.serviceProbes,
		pm.screenshots,
		pm.persistErrors,
		pm.httpRequests,
		pm.httpDuration,
		pm.goroutines,
		pm.uptime,
	)
}

// GetRegistry returns the Prometheus registry backing these metrics.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Handler returns the exposition handler for this registry.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// IncrementScansTotal implements Recorder.
func (pm *PrometheusMetrics) IncrementScansTotal(status string) {
	pm.scansTotal.WithLabelValues(status).Inc()
}

// RecordScanDuration implements Recorder.
func (pm *PrometheusMetrics) RecordScanDuration(duration time.Duration) {
	pm.scanDuration.Observe(duration.Seconds())
}

// SetActiveScans implements Recorder.
func (pm *PrometheusMetrics) SetActiveScans(count int) {
	pm.activeScans.Set(float64(count))
}

// IncrementHostsDiscovered implements Recorder.
func (pm *PrometheusMetrics) IncrementHostsDiscovered(count int) {
	pm.hostsDiscovered.Add(float64(count))
}

// RecordStageDuration implements Recorder.
func (pm *PrometheusMetrics) RecordStageDuration(stage string, duration time.Duration) {
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncrementHostScans implements Recorder.
func (pm *PrometheusMetrics) IncrementHostScans(status string) {
	pm.hostScans.WithLabelValues(status).Inc()
}

// SetPortScanPeak implements Recorder.
func (pm *PrometheusMetrics) SetPortScanPeak(count int) {
	pm.portScanPeak.Set(float64(count))
}

// IncrementOpenPorts implements Recorder.
func (pm *PrometheusMetrics) IncrementOpenPorts(count int) {
	pm.openPorts.Add(float64(count))
}

// IncrementServiceProbes implements Recorder.
func (pm *PrometheusMetrics) IncrementServiceProbes(result string) {
	pm.serviceProbes.WithLabelValues(result).Inc()
}

// IncrementScreenshots implements Recorder.
func (pm *PrometheusMetrics) IncrementScreenshots(result string) {
	pm.screenshots.WithLabelValues(result).Inc()
}

// IncrementPersistErrors implements Recorder.
func (pm *PrometheusMetrics) IncrementPersistErrors() {
	pm.persistErrors.Inc()
}

// IncrementHTTPRequests implements Recorder.
func (pm *PrometheusMetrics) IncrementHTTPRequests(method, path, status string) {
	pm.httpRequests.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration implements Recorder.
func (pm *PrometheusMetrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes the system gauges.
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())
}

// StartPeriodicUpdates refreshes system gauges every interval until ctx is done.
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}
