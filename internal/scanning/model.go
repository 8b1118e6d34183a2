package scanning

import (
	"net/netip"
	"slices"
	"strings"
	"time"
)

// Port is an open port found on a host. HTTPResponse and Screenshot are only
// filled in by the service probe stage.
type Port struct {
	Port         int     `json:"port"`
	State        string  `json:"state"`
	Service      string  `json:"service"`
	Version      *string `json:"version"`
	HTTPResponse *string `json:"http_response"`
	// Screenshot is a base64 PNG, percent-encoded for embedding in text.
	Screenshot *string `json:"screenshot"`
}

// Host is a live address discovered on the scanned network.
type Host struct {
	IP        string  `json:"ip"`
	MAC       *string `json:"mac"`
	Vendor    *string `json:"vendor"`
	Hostname  *string `json:"hostname"`
	OS        *string `json:"os"`
	Icon      *string `json:"icon,omitempty"`
	OpenPorts []Port  `json:"open_ports"`
}

// Scan is the aggregate persisted as one snapshot.
type Scan struct {
	ID      string  `json:"id,omitempty"`
	Network string  `json:"network"`
	Hosts   []*Host `json:"hosts"`
	// Start and End are unix seconds.
	Start float64  `json:"start"`
	End   *float64 `json:"end"`
}

// Icon identifiers derived from an OS description.
const (
	IconWindows = "windows"
	IconLinux   = "linux"
)

// NewScan creates an in-progress scan of network.
func NewScan(id, network string, start time.Time) *Scan {
	return &Scan{
		ID:      id,
		Network: network,
		Hosts:   []*Host{},
		Start:   unixSeconds(start),
	}
}

// InProgress reports whether the scan has not been completed yet.
func (s *Scan) InProgress() bool {
	return s.End == nil
}

// Complete stamps the scan end time.
func (s *Scan) Complete(end time.Time) {
	v := unixSeconds(end)
	s.End = &v
}

// Duration returns the elapsed time between start and end, or zero while in progress.
func (s *Scan) Duration() time.Duration {
	if s.End == nil {
		return 0
	}
	return time.Duration((*s.End - s.Start) * float64(time.Second))
}

// StartTime returns Start as a time.
func (s *Scan) StartTime() time.Time {
	return time.UnixMicro(int64(s.Start * 1e6))
}

// FindHost returns the host with the given IP, or nil.
func (s *Scan) FindHost(ip string) *Host {
	for _, h := range s.Hosts {
		if h.IP == ip {
			return h
		}
	}
	return nil
}

// AddHost appends h unless a host with the same IP is already present.
// It reports whether h was added.
func (s *Scan) AddHost(h *Host) bool {
	if h == nil || h.IP == "" || s.FindHost(h.IP) != nil {
		return false
	}
	if h.OpenPorts == nil {
		h.OpenPorts = []Port{}
	}
	s.Hosts = append(s.Hosts, h)
	return true
}

// SortHosts orders hosts by ascending IPv4 octet tuple.
func (s *Scan) SortHosts() {
	slices.SortStableFunc(s.Hosts, func(a, b *Host) int {
		return CompareIP(a.IP, b.IP)
	})
}

// OpenPortCount returns the number of open ports over all hosts.
func (s *Scan) OpenPortCount() int {
	n := 0
	for _, h := range s.Hosts {
		n += len(h.OpenPorts)
	}
	return n
}

// Clone returns a deep copy safe to hand to readers while the scan continues.
func (s *Scan) Clone() *Scan {
	out := *s
	if s.End != nil {
		end := *s.End
		out.End = &end
	}
	out.Hosts = make([]*Host, len(s.Hosts))
	for i, h := range s.Hosts {
		hc := *h
		hc.OpenPorts = slices.Clone(h.OpenPorts)
		if hc.OpenPorts == nil {
			hc.OpenPorts = []Port{}
		}
		out.Hosts[i] = &hc
	}
	return &out
}

// SetOS records the first non-empty OS observation and derives the icon.
// Later observations are ignored.
func (h *Host) SetOS(os string) {
	os = strings.TrimSpace(os)
	if os == "" || (h.OS != nil && *h.OS != "") {
		return
	}
	h.OS = &os
	if icon := IconFor(os); icon != "" {
		h.Icon = &icon
	}
}

// DisplayName returns the hostname, or "None" when unknown.
func (h *Host) DisplayName() string {
	if h.Hostname == nil || *h.Hostname == "" {
		return "None"
	}
	return *h.Hostname
}

// IconFor maps an OS description onto an icon identifier.
func IconFor(os string) string {
	lower := strings.ToLower(os)
	switch {
	case strings.Contains(lower, "windows"):
		return IconWindows
	case strings.Contains(lower, "linux"):
		return IconLinux
	default:
		return ""
	}
}

// CompareIP orders IPv4 addresses by octet tuple. Anything that is not an
// IPv4 address sorts after every IPv4 address, by string.
func CompareIP(a, b string) int {
	ipA, errA := netip.ParseAddr(a)
	ipB, errB := netip.ParseAddr(b)
	okA := errA == nil && ipA.Is4()
	okB := errB == nil && ipB.Is4()

	switch {
	case okA && okB:
		return ipA.Compare(ipB)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// StringPtr returns nil for empty strings and a pointer otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
