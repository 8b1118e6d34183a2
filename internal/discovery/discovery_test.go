package discovery

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netenum/internal/enrich"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
)

type sweepProber struct {
	hosts []*scanning.Host
	err   error
	calls int
}

func (p *sweepProber) Discover(context.Context, string) iter.Seq2[*scanning.Host, error] {
	p.calls++
	return func(yield func(*scanning.Host, error) bool) {
		for _, h := range p.hosts {
			cp := *h
			if !yield(&cp, nil) {
				return
			}
		}
		if p.err != nil {
			yield(nil, p.err)
		}
	}
}

func (p *sweepProber) ScanPorts(context.Context, string, string) (*scanning.PortScanResult, error) {
	return &scanning.PortScanResult{}, nil
}

type countingStore struct {
	mu    sync.Mutex
	calls int
	last  *scanning.Scan
}

func (s *countingStore) Persist(_ context.Context, scan *scanning.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = scan.Clone()
	return nil
}

type hostnameEnricher struct {
	names map[string]string
	err   error
}

func (e *hostnameEnricher) Name() string { return "static" }

func (e *hostnameEnricher) Enrich(_ context.Context, h *scanning.Host) error {
	if e.err != nil {
		return e.err
	}
	if name, ok := e.names[h.IP]; ok && h.Hostname == nil {
		h.Hostname = scanning.StringPtr(name)
	}
	return nil
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(logging.DefaultConfig(), &strings.Builder{})
}

func newRun(store scanning.Persister) *scanning.ScanContext {
	scan := scanning.NewScan("run-1", "10.0.0.0/30", time.Now())
	return scanning.NewScanContext(scan, scanning.ContextOptions{Logger: quietLogger(), Store: store})
}

func transcript(rc *scanning.ScanContext) string {
	rc.Broker.Close()
	var lines []string
	for l := range rc.Broker.Lines(context.Background()) {
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n")
}

func TestSweepOrdersHosts(t *testing.T) {
	prober := &sweepProber{hosts: []*scanning.Host{
		{IP: "10.0.0.2"},
		{IP: "10.0.0.1", Hostname: scanning.StringPtr("gw")},
	}}
	store := &countingStore{}
	rc := newRun(store)

	hosts := NewStage(prober, nil, quietLogger()).Sweep(context.Background(), rc)

	require.Len(t, hosts, 2)
	assert.Equal(t, "10.0.0.1", hosts[0].IP)
	assert.Equal(t, "10.0.0.2", hosts[1].IP)

	// one persist per host plus the final sorted write
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, "10.0.0.1", store.last.Hosts[0].IP)
	assert.Equal(t, "10.0.0.2", store.last.Hosts[1].IP)

	out := transcript(rc)
	assert.Contains(t, out, "Host discovered: 10.0.0.2 (None)")
	assert.Contains(t, out, "Host discovered: 10.0.0.1 (gw)")
}

func TestSweepIgnoresDuplicatesAndEmptyIPs(t *testing.T) {
	prober := &sweepProber{hosts: []*scanning.Host{
		{IP: "10.0.0.1"},
		{IP: ""},
		{IP: "10.0.0.1"},
	}}
	rc := newRun(&countingStore{})

	hosts := NewStage(prober, nil, quietLogger()).Sweep(context.Background(), rc)

	assert.Len(t, hosts, 1)
	assert.Len(t, rc.Snapshot().Hosts, 1)
}

func TestSweepProbeFailureKeepsPartialResults(t *testing.T) {
	prober := &sweepProber{
		hosts: []*scanning.Host{{IP: "10.0.0.3"}},
		err:   errors.New("nmap: exit status 1"),
	}
	rc := newRun(&countingStore{})

	hosts := NewStage(prober, nil, quietLogger()).Sweep(context.Background(), rc)

	require.Len(t, hosts, 1)
	assert.Contains(t, transcript(rc), "Ping sweep error")
}

func TestSweepRunsEnrichers(t *testing.T) {
	prober := &sweepProber{hosts: []*scanning.Host{{IP: "10.0.0.1"}, {IP: "10.0.0.2"}}}
	enrichers := []enrich.Enricher{
		&hostnameEnricher{err: errors.New("timeout")},
		&hostnameEnricher{names: map[string]string{"10.0.0.2": "nas.lan"}},
	}
	rc := newRun(&countingStore{})

	NewStage(prober, enrichers, quietLogger()).Sweep(context.Background(), rc)

	scan := rc.Snapshot()
	assert.Nil(t, scan.FindHost("10.0.0.1").Hostname)
	assert.Equal(t, "nas.lan", *scan.FindHost("10.0.0.2").Hostname)
}

func TestHostsIsRestartablePerCall(t *testing.T) {
	prober := &sweepProber{hosts: []*scanning.Host{{IP: "10.0.0.1"}, {IP: ""}}}
	stage := NewStage(prober, nil, quietLogger())

	for range 2 {
		var ips []string
		for h := range stage.Hosts(context.Background(), "10.0.0.0/30") {
			ips = append(ips, h.IP)
		}
		assert.Equal(t, []string{"10.0.0.1"}, ips)
	}
	assert.Equal(t, 2, prober.calls)
}

func TestHostsStopsEarly(t *testing.T) {
	prober := &sweepProber{hosts: []*scanning.Host{{IP: "10.0.0.1"}, {IP: "10.0.0.2"}}}
	stage := NewStage(prober, nil, quietLogger())

	for h := range stage.Hosts(context.Background(), "10.0.0.0/30") {
		assert.Equal(t, "10.0.0.1", h.IP)
		break
	}
}
