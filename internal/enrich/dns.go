package enrich

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/scanning"
)

const resolvConfPath = "/etc/resolv.conf"

// DNSEnricher resolves PTR records for hosts without a hostname.
type DNSEnricher struct {
	server string
	client *dns.Client
}

// NewDNSEnricher creates an enricher querying cfg.Server, or the first
// nameserver in /etc/resolv.conf when none is configured.
func NewDNSEnricher(cfg config.DNSConfig) (*DNSEnricher, error) {
	server := cfg.Server
	if server == "" {
		rc, err := dns.ClientConfigFromFile(resolvConfPath)
		if err != nil {
			return nil, fmt.Errorf("read resolver config: %w", err)
		}
		if len(rc.Servers) == 0 {
			return nil, fmt.Errorf("no nameserver in %s", resolvConfPath)
		}
		server = net.JoinHostPort(rc.Servers[0], rc.Port)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &DNSEnricher{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}, nil
}

// Name implements Enricher.
func (e *DNSEnricher) Name() string { return "dns" }

// Enrich implements Enricher.
func (e *DNSEnricher) Enrich(ctx context.Context, host *scanning.Host) error {
	if host.Hostname != nil {
		return nil
	}

	name, err := e.Lookup(ctx, host.IP)
	if err != nil {
		return err
	}
	host.Hostname = scanning.StringPtr(name)
	return nil
}

// Lookup returns the first PTR name for ip without the trailing dot.
func (e *DNSEnricher) Lookup(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	in, _, err := e.client.ExchangeContext(ctx, msg, e.server)
	if err != nil {
		return "", err
	}
	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("ptr lookup for %s: %s", ip, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", nil
}
