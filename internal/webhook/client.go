package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client defaults.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "familyrules-webhook/1.0"

	// maxDrainBytes bounds how much of a response body is read before closing.
	maxDrainBytes = 64 << 10
)

// HTTPClient delivers payloads with a JSON POST.
//
// Each request carries an X-Delivery-Id header so receivers can de-duplicate.
// Any 2xx status is success; anything else, or a transport error, is
// ErrDeliveryFailed. No retry is performed.
type HTTPClient struct {
	http      *http.Client
	userAgent string
}

// NewHTTPClient creates an HTTPClient. Zero values select the defaults.
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPClient{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Send POSTs payload to target.
//
// Parameters:
//   - ctx: Cancels the in-flight request
//   - target: Absolute http(s) URL
//   - payload: JSON body
//
// Returns:
//   - error: ErrInvalidURL, or ErrDeliveryFailed wrapping the cause
func (c *HTTPClient) Send(ctx context.Context, target string, payload []byte) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Delivery-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
