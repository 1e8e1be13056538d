// Package geoip wraps an ip-api style JSON lookup service.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mainsite/internal/config"
)

// Data is the subset of the lookup response the aggregator cares about,
// plus the raw payload for diagnostics.
type Data struct {
	Country string
	City    string
	Zip     string
	// Query is the IP address as normalized by the service.
	Query string
	Raw   json.RawMessage
}

// Resolver resolves a caller IP to geo metadata.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (*Data, error)
}

// Client calls the configured lookup endpoint over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client from config.
func NewClient(cfg config.GeoIPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Query   string `json:"query"`
}

// Resolve fetches {endpoint}/json/{ip} and decodes the result. A non-success
// status in the payload (reserved ranges, private addresses) is an error.
func (c *Client) Resolve(ctx context.Context, ip string) (*Data, error) {
	lookupURL := fmt.Sprintf("%s/json/%s", c.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build geoip request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoip lookup %q: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geoip lookup %q: status %d", ip, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read geoip response: %w", err)
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode geoip response: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("geoip lookup %q failed: %s", ip, payload.Message)
	}

	return &Data{
		Country: payload.Country,
		City:    payload.City,
		Zip:     payload.Zip,
		Query:   payload.Query,
		Raw:     json.RawMessage(body),
	}, nil
}
