package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/scanning"
)

// sysDescrOID is SNMPv2-MIB::sysDescr.0.
const sysDescrOID = ".1.3.6.1.2.1.1.1.0"

// SNMPEnricher reads sysDescr over SNMP v2c for hosts without an OS.
type SNMPEnricher struct {
	cfg config.SNMPConfig
}

// NewSNMPEnricher creates an SNMP enricher.
func NewSNMPEnricher(cfg config.SNMPConfig) *SNMPEnricher {
	return &SNMPEnricher{cfg: cfg}
}

// Name implements Enricher.
func (e *SNMPEnricher) Name() string { return "snmp" }

// Enrich implements Enricher.
func (e *SNMPEnricher) Enrich(ctx context.Context, host *scanning.Host) error {
	if host.OS != nil {
		return nil
	}

	descr, err := e.SysDescr(ctx, host.IP)
	if err != nil {
		return err
	}
	host.SetOS(descr)
	return nil
}

// SysDescr queries sysDescr.0 on ip.
func (e *SNMPEnricher) SysDescr(ctx context.Context, ip string) (string, error) {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      uint16(e.cfg.Port),
		Community: e.cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   e.cfg.Timeout,
		Retries:   0,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("snmp connect %s: %w", ip, err)
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{sysDescrOID})
	if err != nil {
		return "", fmt.Errorf("snmp get %s: %w", ip, err)
	}

	for _, v := range result.Variables {
		if descr := pduString(v); descr != "" {
			return descr, nil
		}
	}
	return "", nil
}

func pduString(v gosnmp.SnmpPDU) string {
	if v.Type != gosnmp.OctetString {
		return ""
	}
	b, ok := v.Value.([]byte)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(b))
}
