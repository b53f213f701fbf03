// internal/common/http/client.go
package http

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Client is the outbound HTTP client handed to the OpenAI SDK. It satisfies
// the SDK's HTTPDoer interface.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client whose calls are each bounded by timeout; zero
// means no per-call limit.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}
