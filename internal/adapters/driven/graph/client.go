// Package graph provides content-source and permission adapters backed
// by the Microsoft Graph API.
//
// Authentication uses the OAuth2 client-credentials flow; all requests
// go through a shared rate limiter to stay under Graph throttling
// limits.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond caps outbound Graph traffic.
	DefaultRequestsPerSecond = 10
)

// Config holds configuration for the Graph client.
type Config struct {
	// TenantID is the directory tenant (required unless HTTPClient is set).
	TenantID string

	// ClientID is the application (client) ID.
	ClientID string

	// ClientSecret is the application secret.
	ClientSecret string

	// BaseURL overrides the Graph API base URL. Used in tests.
	BaseURL string

	// RequestsPerSecond caps the request rate (default: 10).
	RequestsPerSecond float64

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the authenticated client. When set, the
	// client-credentials flow is skipped. Used in tests.
	HTTPClient *http.Client
}

// Client is the shared authenticated Graph HTTP client.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates a Graph client authenticating with client
// credentials against the tenant.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("graph: tenant ID, client ID and client secret are required")
		}
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		httpClient = creds.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)),
	}, nil
}

// getJSON fetches a URL and decodes the JSON response into out.
// A path beginning with "/" is resolved against the base URL; full URLs
// (delta and continuation links) are used as-is.
func (c *Client) getJSON(ctx context.Context, pathOrURL string, out any) error {
	body, _, err := c.get(ctx, pathOrURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get fetches a URL and returns the raw body and status code.
func (c *Client) get(ctx context.Context, pathOrURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	url := pathOrURL
	if strings.HasPrefix(pathOrURL, "/") {
		url = c.baseURL + pathOrURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("graph error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, resp.StatusCode, nil
}
