package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anstrom/netenum/internal/scanning"
)

// Probe results reported to metrics.
const (
	resultRecorded = "recorded"
	resultNotFound = "not_found"
	resultFailed   = "failed"
)

// Stage fetches every open port over HTTP(S) and screenshots the ones that
// answer with anything but a 404.
type Stage struct {
	fetcher  HTTPFetcher
	renderer PageRenderer
}

// NewStage creates the probe stage. A nil renderer disables screenshots.
func NewStage(fetcher HTTPFetcher, renderer PageRenderer) *Stage {
	return &Stage{fetcher: fetcher, renderer: renderer}
}

type target struct {
	ip      string
	port    int
	service string
}

// Run probes every open port of every host in the run, one at a time.
// Each recorded port is persisted before the next one is probed.
func (s *Stage) Run(ctx context.Context, rc *scanning.ScanContext) {
	start := time.Now()
	defer func() { rc.Metrics.RecordStageDuration(string(scanning.PhaseServiceProbing), time.Since(start)) }()

	rc.Logger.Info("Starting HTTP scan on open ports")

	for _, t := range targets(rc.Snapshot()) {
		if ctx.Err() != nil {
			return
		}
		rc.State().SetCurrentHost(t.ip)
		s.probe(ctx, rc, t)
	}
}

func (s *Stage) probe(ctx context.Context, rc *scanning.ScanContext, t target) {
	addr := net.JoinHostPort(t.ip, strconv.Itoa(t.port))
	url := URLFor(t.ip, t.port, t.service)

	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		rc.Metrics.IncrementServiceProbes(resultFailed)
		rc.Logger.Warn(fmt.Sprintf("Failed HTTP request to %s", addr), "error", err)
		return
	}
	if res.StatusCode == http.StatusNotFound {
		rc.Metrics.IncrementServiceProbes(resultNotFound)
		rc.Logger.Debug("Skipping port answering 404", "addr", addr)
		return
	}
	rc.Metrics.IncrementServiceProbes(resultRecorded)
	rc.Logger.Debug(fmt.Sprintf("HTTP response from %s", addr), "status", res.StatusCode)

	var screenshot *string
	if s.renderer != nil {
		rc.Logger.Info(fmt.Sprintf("Capturing screenshot of %s", addr))
		png, err := s.renderer.Render(ctx, url)
		switch {
		case err != nil:
			rc.Metrics.IncrementScreenshots(resultFailed)
			rc.Logger.Warn(fmt.Sprintf("Failed to capture screenshot of %s", addr), "error", err)
		case len(png) == 0:
			rc.Metrics.IncrementScreenshots(resultFailed)
		default:
			rc.Metrics.IncrementScreenshots("success")
			encoded := EncodeScreenshot(png)
			screenshot = &encoded
		}
	}

	raw := res.Raw
	_ = rc.Update(ctx, func(scan *scanning.Scan) {
		host := scan.FindHost(t.ip)
		if host == nil {
			return
		}
		for i := range host.OpenPorts {
			if host.OpenPorts[i].Port != t.port {
				continue
			}
			host.OpenPorts[i].HTTPResponse = &raw
			if screenshot != nil {
				host.OpenPorts[i].Screenshot = screenshot
			}
			return
		}
	})
}

// URLFor builds the probe URL. HTTPS is used when the service name mentions
// SSL or TLS.
func URLFor(ip string, port int, service string) string {
	scheme := "http"
	lower := strings.ToLower(service)
	if strings.Contains(lower, "ssl") || strings.Contains(lower, "tls") || strings.Contains(lower, "https") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(ip, strconv.Itoa(port)))
}

func targets(scan *scanning.Scan) []target {
	var out []target
	for _, h := range scan.Hosts {
		for _, p := range h.OpenPorts {
			out = append(out, target{ip: h.IP, port: p.Port, service: p.Service})
		}
	}
	return out
}
