// Package health queries the backend's /health endpoint.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is where the backend listens once it printed its readiness marker.
const DefaultURL = "http://localhost:8081"

// StatusHealthy is the status reported by a backend whose upload directory exists.
const StatusHealthy = "healthy"

// maxBodySize bounds how much of a health response is read.
const maxBodySize = 1 << 20

// Status is the backend's health report.
type Status struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp,omitempty"`
	Service   string          `json:"service,omitempty"`
	Copyright string          `json:"copyright,omitempty"`
	Features  []string        `json:"features,omitempty"`
	Checks    map[string]bool `json:"checks,omitempty"`
}

// Healthy reports whether the backend considers itself healthy.
func (s *Status) Healthy() bool {
	return s != nil && s.Status == StatusHealthy
}

// Client is an HTTP client for the backend health endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a health client. A zero timeout means 5 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the base URL the client talks to.
func (c *Client) URL() string {
	return c.baseURL
}

// Check fetches {base}/health. Both 200 (healthy) and 503 (unhealthy) carry a
// status body; any other code is an error.
func (c *Client) Check(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("health check returned status %s", resp.Status)
	}

	var status Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	if status.Status == "" {
		return nil, errors.New("health response has no status")
	}
	return &status, nil
}
