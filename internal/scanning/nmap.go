package scanning

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
)

// deadlineSlack is added on top of the nmap host timeout for the context deadline.
const deadlineSlack = 30 * time.Second

// Ports kept from a port scan.
const (
	stateOpen         = "open"
	stateOpenFiltered = "open|filtered"
)

// NmapProber drives nmap for ping sweeps and per-host service scans.
type NmapProber struct {
	cfg    config.ScanningConfig
	logger *logging.Logger
}

// NewNmapProber creates a prober from the scanning configuration.
func NewNmapProber(cfg config.ScanningConfig, logger *logging.Logger) *NmapProber {
	if logger == nil {
		logger = logging.Default()
	}
	return &NmapProber{
		cfg:    cfg,
		logger: logger.WithComponent("nmap"),
	}
}

// Discover implements NetworkProber.
func (p *NmapProber) Discover(ctx context.Context, network string) iter.Seq2[*Host, error] {
	return func(yield func(*Host, error) bool) {
		result, err := p.run(ctx, network, p.discoveryOptions(network))
		if err != nil {
			yield(nil, errors.WrapScanErrorWithTarget(errors.CodeProbeFailed, "ping sweep failed", network, err))
			return
		}

		for i := range result.Hosts {
			h := &result.Hosts[i]
			if h.Status.State != "up" {
				continue
			}
			host := ConvertDiscoveredHost(h)
			if host == nil {
				continue
			}
			if !yield(host, nil) {
				return
			}
		}
	}
}

// ScanPorts implements NetworkProber.
func (p *NmapProber) ScanPorts(ctx context.Context, ip, portRange string) (*PortScanResult, error) {
	timeout := p.cfg.PortScan.HostTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout+deadlineSlack)
		defer cancel()
	}

	if portRange == "" {
		portRange = p.cfg.PortRange
	}

	result, err := p.run(ctx, ip, p.portScanOptions(ip, portRange))
	if err != nil {
		return nil, errors.ErrProbeFailed(ip, err)
	}

	out := &PortScanResult{Ports: []Port{}}
	for i := range result.Hosts {
		h := &result.Hosts[i]
		out.Ports = append(out.Ports, ConvertPorts(h)...)
		if out.OS == "" {
			out.OS = DetectOS(h)
		}
	}
	return out, nil
}

func (p *NmapProber) run(ctx context.Context, target string, options []nmap.Option) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(ctx, options...)
	if err != nil {
		return nil, err
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, err
	}

	if warnings != nil && len(*warnings) > 0 {
		p.logger.Debug("nmap completed with warnings", "target", target, "warnings", *warnings)
	}

	return result, nil
}

func (p *NmapProber) discoveryOptions(network string) []nmap.Option {
	d := p.cfg.Discovery
	options := []nmap.Option{
		nmap.WithTargets(network),
		nmap.WithPingScan(),
		nmap.WithICMPEchoDiscovery(),
		nmap.WithICMPTimestampDiscovery(),
		nmap.WithICMPNetMaskDiscovery(),
		nmap.WithSYNDiscovery("80", "443"),
		nmap.WithACKDiscovery("80", "443"),
		nmap.WithUDPDiscovery("53"),
		nmap.WithTimingTemplate(nmap.Timing(d.Timing)),
		nmap.WithMaxRetries(d.MaxRetries),
	}
	if d.HostTimeout > 0 {
		options = append(options, nmap.WithHostTimeout(d.HostTimeout))
	}
	return p.withBinary(options)
}

func (p *NmapProber) portScanOptions(ip, portRange string) []nmap.Option {
	s := p.cfg.PortScan
	options := []nmap.Option{
		nmap.WithTargets(ip),
		nmap.WithPorts(portRange),
		nmap.WithTimingTemplate(nmap.Timing(s.Timing)),
		nmap.WithServiceInfo(),
		nmap.WithVersionIntensity(int16(s.VersionIntensity)),
		nmap.WithOpenOnly(),
	}
	if s.OSDetection {
		options = append(options, nmap.WithOSDetection())
	}
	if s.HostTimeout > 0 {
		options = append(options, nmap.WithHostTimeout(s.HostTimeout))
	}
	return p.withBinary(options)
}

func (p *NmapProber) withBinary(options []nmap.Option) []nmap.Option {
	if p.cfg.NmapPath != "" {
		options = append(options, nmap.WithBinaryPath(p.cfg.NmapPath))
	}
	return options
}

// ConvertDiscoveredHost maps a ping sweep record onto a Host. It returns nil
// for records without an IP address.
func ConvertDiscoveredHost(h *nmap.Host) *Host {
	host := &Host{OpenPorts: []Port{}}

	for _, addr := range h.Addresses {
		switch addr.AddrType {
		case "ipv4", "ipv6":
			if host.IP == "" {
				host.IP = addr.Addr
			}
		case "mac":
			host.MAC = StringPtr(addr.Addr)
			host.Vendor = StringPtr(addr.Vendor)
		}
	}
	if host.IP == "" {
		return nil
	}

	for _, hn := range h.Hostnames {
		if name := StringPtr(hn.Name); name != nil {
			host.Hostname = name
			break
		}
	}

	return host
}

// ConvertPorts returns the open ports of an nmap host record.
func ConvertPorts(h *nmap.Host) []Port {
	ports := make([]Port, 0, len(h.Ports))
	for i := range h.Ports {
		np := &h.Ports[i]
		if np.State.State != stateOpen && np.State.State != stateOpenFiltered {
			continue
		}

		service := np.Service.Name
		if np.Service.Tunnel == "ssl" && service != "" && !strings.HasPrefix(service, "ssl/") {
			service = "ssl/" + service
		}

		ports = append(ports, Port{
			Port:    int(np.ID),
			State:   np.State.State,
			Service: service,
			Version: StringPtr(joinNonEmpty(np.Service.Product, np.Service.Version, np.Service.ExtraInfo)),
		})
	}
	return ports
}

// DetectOS returns the best OS match of an nmap host record, falling back to
// the OS type reported by service detection.
func DetectOS(h *nmap.Host) string {
	for _, m := range h.OS.Matches {
		if m.Name != "" {
			return m.Name
		}
	}
	for i := range h.Ports {
		if os := h.Ports[i].Service.OSType; os != "" {
			return os
		}
	}
	return ""
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
