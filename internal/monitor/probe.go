package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies the monitor to the polled services.
const DefaultUserAgent = "Pelican-Command-Center/1.0.0"

// maxDrain bounds how much of a response body is read before closing.
const maxDrain = 64 << 10

// Probe issues the single GET request of one service check.
type Probe interface {
	// Get returns the received status code, or an error if no response arrived.
	Get(ctx context.Context, url string) (int, error)
}

// HTTPProbe is the net/http implementation of Probe.
type HTTPProbe struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProbe builds a probe with a per-request timeout.
// Redirects are not followed: a 3xx is reported as received.
func NewHTTPProbe(timeout time.Duration, userAgent string) *HTTPProbe {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPProbe{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get implements Probe.
func (p *HTTPProbe) Get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		// Drain so the connection can be reused for the next poll
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}
