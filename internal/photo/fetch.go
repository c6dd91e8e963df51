// Package photo fetches employee photos and turns them into circular PNG
// thumbnails for the deck.
package photo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"succession/internal/config"
)

// DefaultTimeout bounds a single photo fetch.
const DefaultTimeout = 10 * time.Second

// Fetcher downloads photos from the configured avatar service.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	timeout     time.Duration
	maxBytes    int64
}

// NewFetcher creates a fetcher. urlTemplate must contain {employee_id}.
func NewFetcher(urlTemplate string, timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Fetcher{
		client:      &http.Client{},
		urlTemplate: urlTemplate,
		timeout:     timeout,
		maxBytes:    maxBytes,
	}
}

// NewFetcherFromConfig builds a fetcher from the avatar config section.
func NewFetcherFromConfig(cfg *config.Config) *Fetcher {
	return NewFetcher(cfg.Avatar.URLTemplate, cfg.GetPhotoTimeout(), cfg.Avatar.MaxBytes)
}

// WithClient swaps the HTTP client, e.g. for tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// URL returns the photo URL for an employee.
func (f *Fetcher) URL(employeeID string) string {
	return strings.ReplaceAll(f.urlTemplate, config.EmployeeIDToken, url.PathEscape(employeeID))
}

// Fetch downloads one photo. Timeouts, transport errors, non-200 responses
// and oversized bodies are all failures.
func (f *Fetcher) Fetch(ctx context.Context, employeeID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(employeeID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo request for %s failed: %w", employeeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo request for %s: HTTP %d", employeeID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo for %s: %w", employeeID, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("photo for %s exceeds %d bytes", employeeID, f.maxBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("photo for %s is empty", employeeID)
	}
	return body, nil
}
