package scanning

import (
	"context"
	"log/slog"
	"sync"

	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
)

// Persister writes a snapshot of the scan aggregate.
type Persister interface {
	Persist(ctx context.Context, scan *Scan) error
}

// ScanContext carries everything a pipeline stage needs for one run: the
// aggregate, the stream broker, the shared state tracker and the store.
// All mutations of the aggregate go through Update.
type ScanContext struct {
	ID      string
	Network string
	Logger  *logging.Logger
	Broker  *LogStreamBroker
	Metrics metrics.Recorder

	state *StateTracker
	store Persister

	mu   sync.Mutex
	scan *Scan
}

// ContextOptions configures NewScanContext.
type ContextOptions struct {
	Logger  *logging.Logger
	State   *StateTracker
	Store   Persister
	Metrics metrics.Recorder
	Broker  *LogStreamBroker
}

// NewScanContext wraps scan for one run. Records logged at Info or above
// through the returned context's Logger are also published to the broker.
func NewScanContext(scan *Scan, opts ContextOptions) *ScanContext {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.State == nil {
		opts.State = NewStateTracker()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Broker == nil {
		opts.Broker = NewLogStreamBroker()
	}

	stream := logging.NewStreamHandler(opts.Logger.Handler(), opts.Broker.Publish, slog.LevelInfo)
	logger := opts.Logger.WithHandler(stream).WithScanID(scan.ID).WithNetwork(scan.Network)

	return &ScanContext{
		ID:      scan.ID,
		Network: scan.Network,
		Logger:  logger,
		Broker:  opts.Broker,
		Metrics: opts.Metrics,
		state:   opts.State,
		store:   opts.Store,
		scan:    scan,
	}
}

// State returns the tracker this run writes through.
func (rc *ScanContext) State() *StateTracker {
	return rc.state
}

// Publish sends a raw progress line to the stream.
func (rc *ScanContext) Publish(line string) {
	rc.Broker.Publish(line)
}

// Update applies fn to the aggregate and persists the result inside one
// critical section. A persistence failure is logged and returned; the
// in-memory mutation is kept.
func (rc *ScanContext) Update(ctx context.Context, fn func(*Scan)) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if fn != nil {
		fn(rc.scan)
	}
	if rc.store == nil {
		return nil
	}

	if err := rc.store.Persist(ctx, rc.scan); err != nil {
		rc.Metrics.IncrementPersistErrors()
		rc.Logger.ErrorStorage("Failed to persist scan snapshot", err)
		return err
	}
	return nil
}

// Snapshot returns a deep copy of the aggregate.
func (rc *ScanContext) Snapshot() *Scan {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.scan.Clone()
}

// HostIPs returns the IPs of the hosts currently in the aggregate, in order.
func (rc *ScanContext) HostIPs() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ips := make([]string, len(rc.scan.Hosts))
	for i, h := range rc.scan.Hosts {
		ips[i] = h.IP
	}
	return ips
}
