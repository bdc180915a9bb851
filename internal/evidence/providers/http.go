package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds upstream responses.
const maxBodyBytes = 4 << 20

// HTTPClient is the transport shared by the HTTP providers.
type HTTPClient struct {
	ProviderID string
	Client     *http.Client
	Header     http.Header
}

// NewHTTPClient returns a client with the given timeout.
func NewHTTPClient(providerID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		ProviderID: providerID,
		Client:     &http.Client{Timeout: timeout},
		Header:     make(http.Header),
	}
}

// GetJSON fetches url and decodes a 2xx body into out. Failures come back
// as *ProviderError.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, c.ProviderID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return TransportError(c.ProviderID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return TransportError(c.ProviderID, err)
	}
	if cat := CategoryForStatus(resp.StatusCode); cat != "" {
		return NewProviderError(cat, c.ProviderID, fmt.Sprintf("upstream status %d", resp.StatusCode), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewProviderError(ErrorBadData, c.ProviderID, "decode response", err)
	}
	return nil
}

// Ping issues a GET and treats any non-5xx answer as healthy.
func (c *HTTPClient) Ping(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, c.ProviderID, "build request", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return TransportError(c.ProviderID, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return NewProviderError(ErrorProviderOutage, c.ProviderID, fmt.Sprintf("health status %d", resp.StatusCode), nil)
	}
	return nil
}
