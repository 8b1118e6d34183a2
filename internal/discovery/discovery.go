// Package discovery finds live hosts on a network and adds them to the
// running scan one by one, so partial results are visible while the sweep
// is still going.
package discovery

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/anstrom/netenum/internal/enrich"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
)

// Stage runs the ping sweep of a scan.
type Stage struct {
	prober    scanning.NetworkProber
	enrichers []enrich.Enricher
	logger    *logging.Logger
}

// NewStage creates a discovery stage. Enrichers run on every host in order.
func NewStage(prober scanning.NetworkProber, enrichers []enrich.Enricher, logger *logging.Logger) *Stage {
	if logger == nil {
		logger = logging.Default()
	}
	return &Stage{
		prober:    prober,
		enrichers: enrichers,
		logger:    logger.WithComponent("discovery"),
	}
}

// Hosts returns the live hosts of network as a lazy sequence. Every call
// starts a new sweep. Records without an IP are dropped, and a prober
// failure is logged and ends the sequence.
func (s *Stage) Hosts(ctx context.Context, network string) iter.Seq[*scanning.Host] {
	return s.hosts(ctx, network, s.logger)
}

func (s *Stage) hosts(ctx context.Context, network string, logger *logging.Logger) iter.Seq[*scanning.Host] {
	return func(yield func(*scanning.Host) bool) {
		for host, err := range s.prober.Discover(ctx, network) {
			if err != nil {
				logger.ErrorDiscovery(fmt.Sprintf("Ping sweep error: %v", err), network, err)
				return
			}
			if host == nil || host.IP == "" {
				continue
			}
			if !yield(host) {
				return
			}
		}
	}
}

// Sweep discovers the hosts of the run's network. Each host is enriched,
// added to the scan and persisted before the next one is handled. Once the
// sweep ends the hosts are sorted by address and persisted again. The
// returned slice holds copies of the newly added hosts in sorted order.
func (s *Stage) Sweep(ctx context.Context, rc *scanning.ScanContext) []*scanning.Host {
	start := time.Now()
	defer func() { rc.Metrics.RecordStageDuration(string(scanning.PhaseDiscovering), time.Since(start)) }()

	rc.Logger.Info(fmt.Sprintf("Starting ping sweep on network: %s", rc.Network))

	var found []*scanning.Host
	for host := range s.hosts(ctx, rc.Network, rc.Logger) {
		s.enrich(ctx, rc, host)

		added := false
		_ = rc.Update(ctx, func(scan *scanning.Scan) {
			added = scan.AddHost(host)
		})
		if !added {
			rc.Logger.Debug("Skipping duplicate host", "ip", host.IP)
			continue
		}

		snapshot := *host
		found = append(found, &snapshot)
		rc.Metrics.IncrementHostsDiscovered(1)
		rc.Logger.Info(fmt.Sprintf("Host discovered: %s (%s)", snapshot.IP, snapshot.DisplayName()))
	}

	_ = rc.Update(ctx, func(scan *scanning.Scan) {
		scan.SortHosts()
	})

	slices.SortStableFunc(found, func(a, b *scanning.Host) int {
		return scanning.CompareIP(a.IP, b.IP)
	})

	rc.Logger.Info(fmt.Sprintf("Ping sweep complete: found %d alive hosts", len(found)))
	return found
}

func (s *Stage) enrich(ctx context.Context, rc *scanning.ScanContext, host *scanning.Host) {
	for _, e := range s.enrichers {
		if err := e.Enrich(ctx, host); err != nil {
			rc.Logger.Debug("Enrichment failed", "enricher", e.Name(), "ip", host.IP, "error", err)
		}
	}
}
