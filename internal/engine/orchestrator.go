// Package engine sequences a full scan: discovery, per-host port scans and
// service probing. At most one scan runs at a time.
package engine

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/netenum/internal/discovery"
	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
	"github.com/anstrom/netenum/internal/probe"
	"github.com/anstrom/netenum/internal/scanning"
)

const transcriptFilePerm = 0o644

// Stage interfaces let tests swap in fakes.
type (
	// Discoverer finds hosts and adds them to the run.
	Discoverer interface {
		Sweep(ctx context.Context, rc *scanning.ScanContext) []*scanning.Host
	}
	// PortScanner scans the given hosts.
	PortScanner interface {
		Run(ctx context.Context, rc *scanning.ScanContext, ips []string)
	}
	// ServiceProber probes the open ports of the run.
	ServiceProber interface {
		Run(ctx context.Context, rc *scanning.ScanContext)
	}
)

var (
	_ Discoverer    = (*discovery.Stage)(nil)
	_ PortScanner   = (*scanning.PortScanStage)(nil)
	_ ServiceProber = (*probe.Stage)(nil)
)

// Options wires the orchestrator.
type Options struct {
	Discovery Discoverer
	PortScan  PortScanner
	Probe     ServiceProber
	Store     scanning.Persister
	State     *scanning.StateTracker
	Metrics   metrics.Recorder
	Logger    *logging.Logger
	// LogPath receives the transcript of each finished run. Empty disables it.
	LogPath string
	// BaseContext bounds every run. Cancelling it aborts the active scan.
	BaseContext context.Context
}

// Orchestrator runs scans one at a time.
type Orchestrator struct {
	opts    Options
	running atomic.Bool
	wg      sync.WaitGroup
	now     func() time.Time
}

// Run is a started scan.
type Run struct {
	ID      string
	Network string
	Broker  *scanning.LogStreamBroker
	done    chan struct{}
	scan    *scanning.Scan
}

// Done is closed when the run has finished and its broker is closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Result returns the final aggregate. It is only valid after Done is closed.
func (r *Run) Result() *scanning.Scan {
	<-r.done
	return r.scan
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.State == nil {
		opts.State = scanning.NewStateTracker()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &Orchestrator{opts: opts, now: time.Now}
}

// State returns the tracker served by /state.
func (o *Orchestrator) State() *scanning.StateTracker {
	return o.opts.State
}

// Running reports whether a scan is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// ValidateNetwork checks that network is an IPv4 CIDR and returns it in
// canonical form with host bits cleared.
func ValidateNetwork(network string) (string, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(network))
	if err != nil || !prefix.Addr().Is4() {
		return "", errors.ErrInvalidNetwork(network)
	}
	return prefix.Masked().String(), nil
}

// Start begins a scan of network in the background. It fails with
// CodeInvalidInput for a malformed network and CodeScanInProgress while
// another scan is active. The scan is bound to the orchestrator's base
// context, not to the caller's.
func (o *Orchestrator) Start(network string) (*Run, error) {
	network, err := ValidateNetwork(network)
	if err != nil {
		return nil, err
	}

	if !o.running.CompareAndSwap(false, true) {
		o.opts.Metrics.IncrementScansTotal("rejected")
		return nil, errors.ErrScanInProgress()
	}

	run := &Run{
		ID:      uuid.NewString(),
		Network: network,
		Broker:  scanning.NewLogStreamBroker(),
		done:    make(chan struct{}),
	}
	run.Broker.Publish(fmt.Sprintf("Initiating scan of %s...", network))

	o.opts.State.Begin(run.ID)
	o.opts.Metrics.SetActiveScans(1)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.opts.BaseContext, run)
	}()

	return run, nil
}

// Run starts a scan and blocks until it completes. Lines are delivered to
// sink as they are produced, followed by the completion sentinel.
func (o *Orchestrator) Run(ctx context.Context, network string, sink func(string)) (*scanning.Scan, error) {
	run, err := o.Start(network)
	if err != nil {
		return nil, err
	}
	for line := range run.Broker.Lines(ctx) {
		if sink != nil {
			sink(line)
		}
	}
	select {
	case <-run.Done():
		return run.scan, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until the active scan, if any, has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	scan := scanning.NewScan(run.ID, run.Network, o.now())
	rc := scanning.NewScanContext(scan, scanning.ContextOptions{
		Logger:  o.opts.Logger.WithComponent("scan"),
		State:   o.opts.State,
		Store:   o.opts.Store,
		Metrics: o.opts.Metrics,
		Broker:  run.Broker,
	})

	status := "completed"
	defer func() {
		if r := recover(); r != nil {
			status = "failed"
			rc.Logger.Error(fmt.Sprintf("Scan aborted: %v", r))
		}
		run.scan = rc.Snapshot()
		o.teardown(run, status)
	}()

	o.opts.State.SetPhase(scanning.PhaseDiscovering)
	hosts := o.opts.Discovery.Sweep(ctx, rc)

	ips := make([]string, len(hosts))
	for i, h := range hosts {
		ips[i] = h.IP
	}

	if ctx.Err() == nil {
		o.opts.State.SetPhase(scanning.PhasePortScanning)
		o.opts.PortScan.Run(ctx, rc, ips)
	}

	if ctx.Err() == nil && o.opts.Probe != nil {
		o.opts.State.SetPhase(scanning.PhaseServiceProbing)
		o.opts.Probe.Run(ctx, rc)
	}

	if ctx.Err() != nil {
		status = "canceled"
		rc.Logger.Warn("Scan canceled", "error", ctx.Err())
	}

	o.opts.State.SetPhase(scanning.PhaseComplete)
	o.complete(rc)
}

// complete stamps the end time, publishes the summary and writes the final
// snapshot and transcript.
func (o *Orchestrator) complete(rc *scanning.ScanContext) {
	// detached so a canceled run still gets its final snapshot
	ctx := context.WithoutCancel(o.opts.BaseContext)

	_ = rc.Update(ctx, func(scan *scanning.Scan) {
		scan.Complete(o.now())
	})

	final := rc.Snapshot()
	for _, line := range SummaryLines(final) {
		rc.Logger.Info(line)
	}
	rc.Logger.Info(fmt.Sprintf("Scan completed in %.2f seconds.", final.Duration().Seconds()))
	o.opts.Metrics.RecordScanDuration(final.Duration())

	if o.opts.LogPath != "" {
		if err := writeTranscript(o.opts.LogPath, rc.Broker.Transcript()); err != nil {
			rc.Logger.ErrorStorage("Failed to write scan log", err, "path", o.opts.LogPath)
		}
	}
}

func (o *Orchestrator) teardown(run *Run, status string) {
	o.opts.State.Reset()
	o.opts.Metrics.SetActiveScans(0)
	o.opts.Metrics.IncrementScansTotal(status)
	run.Broker.Close()
	o.running.Store(false)
	close(run.done)
}

// SummaryLines renders the per-host summary emitted at the end of a scan.
func SummaryLines(scan *scanning.Scan) []string {
	var lines []string
	for _, h := range scan.Hosts {
		lines = append(lines, fmt.Sprintf("Host: %s (%s)", h.IP, h.DisplayName()))
		for _, p := range h.OpenPorts {
			version := "None"
			if p.Version != nil {
				version = *p.Version
			}
			lines = append(lines, fmt.Sprintf("  Port: %d, Service: %s, Version: %s", p.Port, p.Service, version))
		}
	}
	return lines
}

func writeTranscript(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), transcriptFilePerm)
}
