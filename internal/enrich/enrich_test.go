package enrich

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/scanning"
)

// startPTRServer runs a DNS server answering every PTR query with ptr.
func startPTRServer(t *testing.T, ptr string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc("in-addr.arpa.", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if ptr == "" {
			m.Rcode = dns.RcodeNameError
		} else {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
				Ptr: ptr,
			})
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSEnricher(t *testing.T) {
	addr := startPTRServer(t, "printer.lan.")
	e, err := NewDNSEnricher(config.DNSConfig{Enabled: true, Server: addr, Timeout: time.Second})
	require.NoError(t, err)

	host := &scanning.Host{IP: "192.168.1.20"}
	require.NoError(t, e.Enrich(context.Background(), host))
	require.NotNil(t, host.Hostname)
	assert.Equal(t, "printer.lan", *host.Hostname)
}

func TestDNSEnricherKeepsExistingHostname(t *testing.T) {
	addr := startPTRServer(t, "other.lan.")
	e, err := NewDNSEnricher(config.DNSConfig{Server: addr, Timeout: time.Second})
	require.NoError(t, err)

	host := &scanning.Host{IP: "192.168.1.20", Hostname: scanning.StringPtr("nas")}
	require.NoError(t, e.Enrich(context.Background(), host))
	assert.Equal(t, "nas", *host.Hostname)
}

func TestDNSEnricherNXDomain(t *testing.T) {
	addr := startPTRServer(t, "")
	e, err := NewDNSEnricher(config.DNSConfig{Server: addr, Timeout: time.Second})
	require.NoError(t, err)

	host := &scanning.Host{IP: "192.168.1.21"}
	assert.Error(t, e.Enrich(context.Background(), host))
	assert.Nil(t, host.Hostname)
}

func TestDNSEnricherInvalidIP(t *testing.T) {
	e, err := NewDNSEnricher(config.DNSConfig{Server: "127.0.0.1:53"})
	require.NoError(t, err)

	_, err = e.Lookup(context.Background(), "not-an-ip")
	assert.Error(t, err)
}

func TestSNMPEnricherSkipsKnownOS(t *testing.T) {
	e := NewSNMPEnricher(config.SNMPConfig{Community: "public", Port: 161, Timeout: 50 * time.Millisecond})
	host := &scanning.Host{IP: "192.0.2.1", OS: scanning.StringPtr("Linux 5.4")}

	require.NoError(t, e.Enrich(context.Background(), host))
	assert.Equal(t, "Linux 5.4", *host.OS)
}

func TestSNMPEnricherUnreachable(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())

	e := NewSNMPEnricher(config.SNMPConfig{Community: "public", Port: port, Timeout: 100 * time.Millisecond})
	host := &scanning.Host{IP: "127.0.0.1"}

	assert.Error(t, e.Enrich(context.Background(), host))
	assert.Nil(t, host.OS)
}

func TestPDUString(t *testing.T) {
	assert.Equal(t, "Linux router 5.10", pduString(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("Linux router 5.10 ")}))
	assert.Empty(t, pduString(gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 5}))
	assert.Empty(t, pduString(gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}))
}

func TestFromConfig(t *testing.T) {
	enrichers, err := FromConfig(config.EnrichConfig{
		DNS:  config.DNSConfig{Enabled: true, Server: "127.0.0.1:53"},
		SNMP: config.SNMPConfig{Enabled: true, Community: "public", Port: 161},
	})
	require.NoError(t, err)
	require.Len(t, enrichers, 2)
	assert.Equal(t, "dns", enrichers[0].Name())
	assert.Equal(t, "snmp", enrichers[1].Name())

	none, err := FromConfig(config.EnrichConfig{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
