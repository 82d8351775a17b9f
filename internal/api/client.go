package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// AdminHeader carries the admin token that unlocks raw diagnostics.
	AdminHeader = "X-Admin-Token"

	defaultHealthTimeout = 10 * time.Second
)

// ClientConfig describes how to reach a running daemon.
type ClientConfig struct {
	// BaseURL is the daemon address; a bare host:port is treated as http.
	BaseURL    string
	Token      string
	AdminToken string
	HTTPClient *http.Client
}

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL    *url.URL
	token      string
	adminToken string
	http       *http.Client
}

// NewClient creates a Client from the supplied configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("api client: base url is required")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api client: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		// Fetches run for as long as every planned attempt takes; callers bound them with ctx.
		client = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		adminToken: strings.TrimSpace(cfg.AdminToken),
		http:       client,
	}, nil
}

// Health queries GET /api/health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthTimeout)
		defer cancel()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/health"), nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("api client: build health request: %w", err)
	}
	c.applyHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("api client: health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return HealthResponse{}, fmt.Errorf("api client: health failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var payload HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return HealthResponse{}, fmt.Errorf("api client: decode health response: %w", err)
	}
	return payload, nil
}

// Fetch posts req to /api/fetch. Mapped failures are not errors: the
// returned status and body describe them.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (int, FetchResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, FetchResponse{}, fmt.Errorf("api client: encode fetch request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/fetch"), bytes.NewReader(payload))
	if err != nil {
		return 0, FetchResponse{}, fmt.Errorf("api client: build fetch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.applyHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, FetchResponse{}, fmt.Errorf("api client: fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	var body FetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, FetchResponse{}, fmt.Errorf("api client: decode fetch response (%s): %w", resp.Status, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.adminToken != "" {
		req.Header.Set(AdminHeader, c.adminToken)
	}
}
