package scanning

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics/mocks"
)

// recordingStore counts Persist calls and keeps the last snapshot.
type recordingStore struct {
	mu    sync.Mutex
	calls int
	last  *Scan
	err   error
}

func (s *recordingStore) Persist(_ context.Context, scan *Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = scan.Clone()
	return s.err
}

func (s *recordingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubProber serves canned port scan results and tracks concurrency.
type stubProber struct {
	delay   time.Duration
	results map[string]*PortScanResult
	fail    map[string]error

	running atomic.Int32
	peak    atomic.Int32
}

func (p *stubProber) Discover(context.Context, string) iter.Seq2[*Host, error] {
	return func(func(*Host, error) bool) {}
}

func (p *stubProber) ScanPorts(ctx context.Context, ip, _ string) (*PortScanResult, error) {
	n := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := p.fail[ip]; err != nil {
		return nil, err
	}
	if r, ok := p.results[ip]; ok {
		return r, nil
	}
	return &PortScanResult{}, nil
}

func newTestContext(t *testing.T, scan *Scan, store Persister) *ScanContext {
	t.Helper()
	return NewScanContext(scan, ContextOptions{
		Logger: logging.NewWithWriter(logging.DefaultConfig(), &strings.Builder{}),
		Store:  store,
	})
}

func scanWithHosts(ips ...string) *Scan {
	scan := NewScan("id-1", "10.0.0.0/24", time.Now())
	for _, ip := range ips {
		scan.AddHost(&Host{IP: ip})
	}
	return scan
}

func drain(b *LogStreamBroker) []string {
	b.Close()
	var lines []string
	for line := range b.Lines(context.Background()) {
		lines = append(lines, line)
	}
	return lines
}

func TestScanAddHostRejectsDuplicates(t *testing.T) {
	scan := NewScan("id", "10.0.0.0/30", time.Now())

	assert.True(t, scan.AddHost(&Host{IP: "10.0.0.1"}))
	assert.False(t, scan.AddHost(&Host{IP: "10.0.0.1"}))
	assert.False(t, scan.AddHost(&Host{}))
	assert.False(t, scan.AddHost(nil))
	require.Len(t, scan.Hosts, 1)
	assert.NotNil(t, scan.Hosts[0].OpenPorts)
}

func TestScanSortHosts(t *testing.T) {
	scan := scanWithHosts("10.0.0.3", "fe80::1", "10.0.0.10", "10.0.0.1", "9.255.255.255")
	scan.SortHosts()

	var got []string
	for _, h := range scan.Hosts {
		got = append(got, h.IP)
	}
	assert.Equal(t, []string{"9.255.255.255", "10.0.0.1", "10.0.0.3", "10.0.0.10", "fe80::1"}, got)
}

func TestScanLifecycle(t *testing.T) {
	start := time.Unix(1700000000, 0)
	scan := NewScan("id", "10.0.0.0/24", start)
	assert.True(t, scan.InProgress())
	assert.Zero(t, scan.Duration())

	scan.Complete(start.Add(90 * time.Second))
	assert.False(t, scan.InProgress())
	assert.InDelta(t, 90, scan.Duration().Seconds(), 0.001)
}

func TestScanCloneIsDeep(t *testing.T) {
	scan := scanWithHosts("10.0.0.1")
	scan.Hosts[0].OpenPorts = []Port{{Port: 22, State: "open", Service: "ssh"}}

	clone := scan.Clone()
	clone.Hosts[0].OpenPorts[0].Port = 2222
	clone.Hosts[0].IP = "10.0.0.9"

	assert.Equal(t, 22, scan.Hosts[0].OpenPorts[0].Port)
	assert.Equal(t, "10.0.0.1", scan.Hosts[0].IP)
}

func TestHostSetOS(t *testing.T) {
	h := &Host{IP: "10.0.0.1"}

	h.SetOS("")
	assert.Nil(t, h.OS)

	h.SetOS("Microsoft Windows 10 1607")
	require.NotNil(t, h.Icon)
	assert.Equal(t, IconWindows, *h.Icon)

	h.SetOS("Linux 5.4")
	assert.Equal(t, "Microsoft Windows 10 1607", *h.OS)
	assert.Equal(t, IconWindows, *h.Icon)

	other := &Host{}
	other.SetOS("FreeBSD 13")
	assert.Nil(t, other.Icon)
}

func TestSnapshotJSONShape(t *testing.T) {
	scan := NewScan("id", "10.0.0.0/30", time.Unix(1700000000, 0))
	scan.AddHost(&Host{IP: "10.0.0.1", Hostname: StringPtr("router")})

	data, err := json.Marshal(scan)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "10.0.0.0/30", raw["network"])
	assert.Nil(t, raw["end"])
	host := raw["hosts"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{}, host["open_ports"])
	assert.Contains(t, host, "mac")
	assert.NotContains(t, host, "icon")
}

func TestConvertDiscoveredHost(t *testing.T) {
	h := &nmap.Host{
		Addresses: []nmap.Address{
			{Addr: "192.168.1.10", AddrType: "ipv4"},
			{Addr: "AA:BB:CC:DD:EE:FF", AddrType: "mac", Vendor: "Acme"},
		},
		Hostnames: []nmap.Hostname{{Name: "printer.lan"}},
	}

	host := ConvertDiscoveredHost(h)
	require.NotNil(t, host)
	assert.Equal(t, "192.168.1.10", host.IP)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", *host.MAC)
	assert.Equal(t, "Acme", *host.Vendor)
	assert.Equal(t, "printer.lan", *host.Hostname)

	assert.Nil(t, ConvertDiscoveredHost(&nmap.Host{
		Addresses: []nmap.Address{{Addr: "AA:BB:CC:DD:EE:FF", AddrType: "mac"}},
	}))
}

func TestConvertPorts(t *testing.T) {
	h := &nmap.Host{
		Ports: []nmap.Port{
			{ID: 22, State: nmap.State{State: "open"}, Service: nmap.Service{Name: "ssh", Product: "OpenSSH", Version: "8.9p1", ExtraInfo: "Ubuntu"}},
			{ID: 443, State: nmap.State{State: "open"}, Service: nmap.Service{Name: "http", Tunnel: "ssl"}},
			{ID: 161, State: nmap.State{State: "open|filtered"}, Service: nmap.Service{Name: "snmp"}},
			{ID: 25, State: nmap.State{State: "closed"}, Service: nmap.Service{Name: "smtp"}},
		},
	}

	ports := ConvertPorts(h)
	require.Len(t, ports, 3)

	assert.Equal(t, 22, ports[0].Port)
	assert.Equal(t, "OpenSSH 8.9p1 Ubuntu", *ports[0].Version)
	assert.Equal(t, "ssl/http", ports[1].Service)
	assert.Nil(t, ports[1].Version)
	assert.Equal(t, "open|filtered", ports[2].State)
}

func TestDetectOS(t *testing.T) {
	withMatch := &nmap.Host{OS: nmap.OS{Matches: []nmap.OSMatch{{Name: "Linux 4.15 - 5.6"}}}}
	assert.Equal(t, "Linux 4.15 - 5.6", DetectOS(withMatch))

	fallback := &nmap.Host{Ports: []nmap.Port{{Service: nmap.Service{OSType: "Windows"}}}}
	assert.Equal(t, "Windows", DetectOS(fallback))

	assert.Empty(t, DetectOS(&nmap.Host{}))
}

func TestStateTracker(t *testing.T) {
	tr := NewStateTracker()
	snap := tr.Snapshot()
	assert.False(t, snap.Scanning)
	assert.Nil(t, snap.CurrentHost)
	assert.Equal(t, PhaseIdle, snap.Phase)

	tr.Begin("scan-1")
	tr.SetPhase(PhasePortScanning)
	tr.Dispatch("10.0.0.2")
	tr.Dispatch("10.0.0.10")
	tr.Dispatch("10.0.0.1")
	tr.Finish("10.0.0.2")

	snap = tr.Snapshot()
	assert.True(t, snap.Scanning)
	assert.Equal(t, "10.0.0.1", *snap.CurrentHost)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.10"}, snap.ActiveHosts)
	assert.Equal(t, "scan-1", snap.ScanID)

	tr.Reset()
	snap = tr.Snapshot()
	assert.False(t, snap.Scanning)
	assert.Nil(t, snap.CurrentHost)
	assert.Empty(t, snap.ActiveHosts)
}

func TestBrokerOrderingAndSentinel(t *testing.T) {
	b := NewLogStreamBroker()

	var got []string
	done := make(chan struct{})
	go func() {
		for line := range b.Lines(context.Background()) {
			got = append(got, line)
		}
		close(done)
	}()

	for _, l := range []string{"one", "two", "three"} {
		b.Publish(l)
	}
	b.Close()
	b.Publish("after close")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish after close")
	}

	assert.Equal(t, []string{"one", "two", "three", CompletionSentinel}, got)
	assert.Equal(t, []string{"one", "two", "three"}, b.Transcript())
}

func TestBrokerLinesIsNotRestartable(t *testing.T) {
	b := NewLogStreamBroker()
	b.Publish("x")
	assert.Equal(t, []string{"x", CompletionSentinel}, drain(b))

	var second []string
	for line := range b.Lines(context.Background()) {
		second = append(second, line)
	}
	assert.Empty(t, second)
}

func TestBrokerLinesStopsOnContext(t *testing.T) {
	b := NewLogStreamBroker()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		for range b.Lines(ctx) {
		}
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lines did not stop on context cancellation")
	}
}

func TestScanContextUpdatePersists(t *testing.T) {
	store := &recordingStore{}
	rc := newTestContext(t, scanWithHosts(), store)

	require.NoError(t, rc.Update(context.Background(), func(s *Scan) {
		s.AddHost(&Host{IP: "10.0.0.1"})
	}))

	assert.Equal(t, 1, store.Calls())
	assert.Len(t, store.last.Hosts, 1)
	assert.Equal(t, []string{"10.0.0.1"}, rc.HostIPs())
}

func TestScanContextUpdatePersistFailureKeepsMutation(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().IncrementPersistErrors().Times(1)

	store := &recordingStore{err: errors.New("disk full")}
	rc := NewScanContext(scanWithHosts(), ContextOptions{
		Logger:  logging.NewWithWriter(logging.DefaultConfig(), &strings.Builder{}),
		Store:   store,
		Metrics: recorder,
	})

	err := rc.Update(context.Background(), func(s *Scan) { s.AddHost(&Host{IP: "10.0.0.7"}) })
	assert.Error(t, err)
	assert.Len(t, rc.Snapshot().Hosts, 1)

	lines := drain(rc.Broker)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "[ERROR] Failed to persist scan snapshot")
}

func TestScanContextLoggerTeesToBroker(t *testing.T) {
	rc := newTestContext(t, scanWithHosts(), nil)

	rc.Logger.Debug("hidden")
	rc.Logger.Info("Host discovered: 10.0.0.1 (None)")

	lines := drain(rc.Broker)
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] Host discovered: 10.0.0.1 \(None\)$`, lines[0])
	assert.Equal(t, CompletionSentinel, lines[1])
}

func TestPortScanStageBoundsConcurrency(t *testing.T) {
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"}
	prober := &stubProber{delay: 20 * time.Millisecond}
	store := &recordingStore{}
	rc := newTestContext(t, scanWithHosts(ips...), store)

	NewPortScanStage(prober, "1-1024", 8).Run(context.Background(), rc, ips)

	assert.LessOrEqual(t, prober.peak.Load(), int32(2))
	assert.Equal(t, len(ips), store.Calls())
	assert.Empty(t, rc.State().Snapshot().ActiveHosts)
}

func TestPortScanStageReportsPeak(t *testing.T) {
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	prober := &stubProber{delay: 20 * time.Millisecond}

	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().RecordStageDuration(string(PhasePortScanning), gomock.Any()).Times(1)
	recorder.EXPECT().IncrementHostScans("success").Times(len(ips))
	recorder.EXPECT().IncrementOpenPorts(gomock.Any()).AnyTimes()

	var reported int
	recorder.EXPECT().SetPortScanPeak(gomock.Any()).Do(func(n int) { reported = n }).Times(1)

	rc := NewScanContext(scanWithHosts(ips...), ContextOptions{
		Logger:  logging.NewWithWriter(logging.DefaultConfig(), &strings.Builder{}),
		Store:   &recordingStore{},
		Metrics: recorder,
	})
	NewPortScanStage(prober, "1-1024", 2).Run(context.Background(), rc, ips)

	assert.GreaterOrEqual(t, reported, int(prober.peak.Load()))
	assert.GreaterOrEqual(t, reported, 1)
	assert.LessOrEqual(t, reported, 2)
}

func TestPortScanStageFailureIsolation(t *testing.T) {
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	prober := &stubProber{
		results: map[string]*PortScanResult{
			"10.0.0.1": {Ports: []Port{{Port: 22, State: "open", Service: "ssh"}}, OS: "Linux 5.4"},
			"10.0.0.3": {Ports: []Port{{Port: 80, State: "open", Service: "http"}}},
		},
		fail: map[string]error{"10.0.0.2": errors.New("host timeout")},
	}
	store := &recordingStore{}
	rc := newTestContext(t, scanWithHosts(ips...), store)

	NewPortScanStage(prober, "1-1024", 2).Run(context.Background(), rc, ips)

	scan := rc.Snapshot()
	assert.Len(t, scan.FindHost("10.0.0.1").OpenPorts, 1)
	assert.Equal(t, "linux", *scan.FindHost("10.0.0.1").Icon)
	assert.Empty(t, scan.FindHost("10.0.0.2").OpenPorts)
	assert.Len(t, scan.FindHost("10.0.0.3").OpenPorts, 1)
	assert.Equal(t, 3, store.Calls())

	lines := strings.Join(drain(rc.Broker), "\n")
	assert.Contains(t, lines, "Open ports on 10.0.0.1: [22]")
	assert.Contains(t, lines, "Open ports on 10.0.0.3: [80]")
	assert.Contains(t, lines, "Error processing 10.0.0.2: host timeout")
	assert.NotContains(t, lines, "Open ports on 10.0.0.2")
}

func TestFormatPortList(t *testing.T) {
	assert.Equal(t, "[]", FormatPortList(nil))
	assert.Equal(t, "[22 80 443]", FormatPortList([]Port{{Port: 22}, {Port: 80}, {Port: 443}}))
}
