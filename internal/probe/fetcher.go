// Package probe fetches and screenshots the web services found on open ports.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"time"
)

// FetchResult is the outcome of a single HTTP request.
type FetchResult struct {
	StatusCode int
	// Raw is the status line, headers and (possibly truncated) body.
	Raw string
}

// HTTPFetcher performs a GET and returns the raw response.
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// NetHTTPFetcher is an HTTPFetcher that follows redirects and accepts any
// certificate.
type NetHTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewNetHTTPFetcher creates a fetcher with the given request timeout and body limit.
func NewNetHTTPFetcher(timeout time.Duration, maxBodyBytes int64) *NetHTTPFetcher {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // targets are LAN devices with self-signed certs
		},
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		DisableKeepAlives:  true,
		DisableCompression: true,
	}

	return &NetHTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch implements HTTPFetcher.
func (f *NetHTTPFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "netenum")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	head, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return nil, fmt.Errorf("dump response headers: %w", err)
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBodyBytes)
	}

	var buf bytes.Buffer
	buf.Write(head)
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Raw:        buf.String(),
	}, nil
}
