package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/workers"
)

const portScanJobType = "port_scan"

// PortScanStage runs service detection on every discovered host through a
// worker pool of at most config.MaxPortWorkers goroutines.
type PortScanStage struct {
	prober    NetworkProber
	portRange string
	workers   int
}

// NewPortScanStage creates the stage. workers is clamped to [1, MaxPortWorkers].
func NewPortScanStage(prober NetworkProber, portRange string, workers int) *PortScanStage {
	if workers < 1 {
		workers = 1
	}
	if workers > config.MaxPortWorkers {
		workers = config.MaxPortWorkers
	}
	return &PortScanStage{
		prober:    prober,
		portRange: portRange,
		workers:   workers,
	}
}

// Run scans every host in ips and waits for all of them. A failing host is
// logged and counted as having no open ports; it never stops its siblings.
func (s *PortScanStage) Run(ctx context.Context, rc *ScanContext, ips []string) {
	if len(ips) == 0 {
		return
	}
	start := time.Now()
	defer func() { rc.Metrics.RecordStageDuration(string(PhasePortScanning), time.Since(start)) }()

	pool := workers.New(workers.Config{
		Size:      s.workers,
		QueueSize: len(ips),
	})
	pool.Start(ctx)

	for _, ip := range ips {
		job := workers.NewHostJob(ip, portScanJobType, func(ctx context.Context, ip string) error {
			rc.State().Dispatch(ip)
			defer rc.State().Finish(ip)
			return s.scanHost(ctx, rc, ip)
		})
		if err := pool.Submit(job); err != nil {
			rc.Logger.ErrorHost(fmt.Sprintf("Error processing %s: %v", ip, err), ip, err)
		}
	}

	pool.Shutdown()
	rc.Metrics.SetPortScanPeak(pool.Peak())

	for result := range pool.Results() {
		status := "success"
		if result.Error != nil {
			status = "failed"
		}
		rc.Metrics.IncrementHostScans(status)
	}
}

func (s *PortScanStage) scanHost(ctx context.Context, rc *ScanContext, ip string) error {
	rc.Logger.Info(fmt.Sprintf("Scanning ports on %s: %s", ip, s.portRange))
	result, err := s.prober.ScanPorts(ctx, ip, s.portRange)
	if err != nil {
		rc.Logger.ErrorHost(fmt.Sprintf("Error processing %s: %v", ip, err), ip, err)
		result = &PortScanResult{}
	}

	ports := result.Ports
	if ports == nil {
		ports = []Port{}
	}

	_ = rc.Update(ctx, func(scan *Scan) {
		host := scan.FindHost(ip)
		if host == nil {
			return
		}
		host.OpenPorts = ports
		host.SetOS(result.OS)
	})

	if err != nil {
		return err
	}

	rc.Metrics.IncrementOpenPorts(len(ports))
	rc.Logger.Info(fmt.Sprintf("Open ports on %s: %s", ip, FormatPortList(ports)))
	return nil
}

// FormatPortList renders port numbers as "[22 80 443]".
func FormatPortList(ports []Port) string {
	nums := make([]string, len(ports))
	for i, p := range ports {
		nums[i] = fmt.Sprint(p.Port)
	}
	return "[" + strings.Join(nums, " ") + "]"
}
