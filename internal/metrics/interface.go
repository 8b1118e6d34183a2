// Package metrics provides the metrics interface used by the scan pipeline
// and the API, with a Prometheus implementation and a no-op fallback.
package metrics

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/anstrom/netenum/internal/metrics Recorder

import "time"

// Recorder defines the metrics emitted by the scan pipeline and the API.
// The interface keeps stages testable without a Prometheus registry.
type Recorder interface {
	// IncrementScansTotal counts finished runs by status ("completed", "rejected").
	IncrementScansTotal(status string)

	// RecordScanDuration records the wall-clock time of a run.
	RecordScanDuration(duration time.Duration)

	// SetActiveScans sets the number of runs in progress.
	SetActiveScans(count int)

	// IncrementHostsDiscovered adds newly discovered hosts.
	IncrementHostsDiscovered(count int)

	// RecordStageDuration records how long a pipeline stage took.
	RecordStageDuration(stage string, duration time.Duration)

	// IncrementHostScans counts per-host port scans by status ("success", "failed").
	IncrementHostScans(status string)

	// SetPortScanPeak sets the highest number of hosts port-scanned at once
	// during the last port scan stage.
	SetPortScanPeak(count int)

	// IncrementOpenPorts adds open ports found by the port scan stage.
	IncrementOpenPorts(count int)

	// IncrementServiceProbes counts HTTP probes by result ("recorded", "not_found", "failed").
	IncrementServiceProbes(result string)

	// IncrementScreenshots counts render attempts by result ("success", "failed").
	IncrementScreenshots(result string)

	// IncrementPersistErrors counts failed snapshot writes.
	IncrementPersistErrors()

	// IncrementHTTPRequests counts API requests.
	IncrementHTTPRequests(method, path, status string)

	// RecordHTTPDuration records API request latency.
	RecordHTTPDuration(method, path string, duration time.Duration)
}

// Ensure implementations satisfy Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Nop{}
)

// Nop discards every metric.
type Nop struct{}

func (Nop) IncrementScansTotal(string) {}
func (Nop) RecordScanDuration(time.Duration) {}
func (Nop) SetActiveScans(int) {}
func (Nop) IncrementHostsDiscovered(int) {}
func (Nop) RecordStageDuration(string, time.Duration) {}
func (Nop) IncrementHostScans(string) {}
func (Nop) SetPortScanPeak(int) {}
func (Nop) IncrementOpenPorts(int) {}
func (Nop) IncrementServiceProbes(string) {}
func (Nop) IncrementScreenshots(string) {}
func (Nop) IncrementPersistErrors() {}
func (Nop) IncrementHTTPRequests(string, string, string) {}
func (Nop) RecordHTTPDuration(string, string, time.Duration) {}
