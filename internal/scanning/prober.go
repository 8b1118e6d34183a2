package scanning

import (
	"context"
	"iter"
)

// PortScanResult is what a single-host port scan reports.
type PortScanResult struct {
	Ports []Port
	// OS is the best OS guess, empty when detection failed.
	OS string
}

// NetworkProber abstracts the external network scanner.
type NetworkProber interface {
	// Discover runs a ping sweep of network and yields every live host.
	// A scanner failure is yielded once as (nil, err) and ends the sequence.
	Discover(ctx context.Context, network string) iter.Seq2[*Host, error]

	// ScanPorts scans portRange on a single address.
	ScanPorts(ctx context.Context, ip, portRange string) (*PortScanResult, error)
}
