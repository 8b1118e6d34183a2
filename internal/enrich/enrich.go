// Package enrich fills in host details that the ping sweep did not report.
package enrich

import (
	"context"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/scanning"
)

// Enricher adds information to a freshly discovered host. Implementations
// leave fields alone that are already set.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, host *scanning.Host) error
}

// FromConfig returns the enrichers enabled in cfg.
func FromConfig(cfg config.EnrichConfig) ([]Enricher, error) {
	var out []Enricher
	if cfg.DNS.Enabled {
		dnsEnricher, err := NewDNSEnricher(cfg.DNS)
		if err != nil {
			return nil, err
		}
		out = append(out, dnsEnricher)
	}
	if cfg.SNMP.Enabled {
		out = append(out, NewSNMPEnricher(cfg.SNMP))
	}
	return out, nil
}
