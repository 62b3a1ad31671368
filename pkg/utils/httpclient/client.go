// Package httpclient provides a small HTTP client wrapper with JSON helpers,
// file download support and W3C trace-context propagation.
//
// The client performs exactly one attempt per request. Callers that need
// retries wrap the call site instead, so the attempt count has a single owner.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/docrag/pkg/utils/json"
)

// Client is a wrapper around http.Client.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new HTTP client wrapper with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do executes the request with trace-context headers injected.
// The caller owns the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.injectTraceContext(req)
	return c.httpClient.Do(req)
}

// DoJSON executes the request, decodes the JSON response into v, and ensures
// the body is closed. Responses with status >= 400 are returned as errors
// carrying the body text.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// DownloadToFile streams the response body of a GET request to dest.
// Any non-2xx status is an error. The partially written file is removed
// on failure.
func (c *Client) DownloadToFile(req *http.Request, dest string) (int64, error) {
	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("download failed with status code %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(dest)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}
	return n, nil
}

// injectTraceContext injects W3C trace-context headers from the request
// context. Skipped when there is no propagator or no active span.
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}

	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
