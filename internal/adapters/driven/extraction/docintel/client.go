// Package docintel provides an OCR client for the Azure Document
// Intelligence prebuilt-read model, used for scanned documents whose
// text layer is unusable.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultAPIVersion   = "2023-07-31"
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// Config holds configuration for the Document Intelligence client.
type Config struct {
	// Endpoint is the resource endpoint, e.g.
	// https://myresource.cognitiveservices.azure.com (required).
	Endpoint string

	// APIKey is the resource API key (required).
	APIKey string

	// APIVersion is the API version query parameter (default: 2023-07-31).
	APIVersion string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// PollInterval is the delay between result polls (default: 2s).
	PollInterval time.Duration

	// PollTimeout bounds the total wait for a result (default: 5m).
	PollTimeout time.Duration
}

// Client runs OCR through the prebuilt-read analyze operation.
//
// Analysis is asynchronous: the submit call returns an operation
// location which is polled until the result is ready.
type Client struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	apiVersion   string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// analyzeResult is the completed operation's payload.
type analyzeResult struct {
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	AnalyzeResult struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
}

// NewClient creates a Document Intelligence OCR client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("docintel: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("docintel: API key is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		apiVersion:   cfg.APIVersion,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}, nil
}

// Recognize runs OCR on the document and returns page-marked text.
func (c *Client) Recognize(ctx context.Context, content []byte) (string, error) {
	location, err := c.submit(ctx, content)
	if err != nil {
		return "", err
	}

	result, err := c.poll(ctx, location)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, page := range result.AnalyzeResult.Pages {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n", page.PageNumber)
		for _, line := range page.Lines {
			sb.WriteString("\n")
			sb.WriteString(line.Content)
		}
	}
	return sb.String(), nil
}

// submit starts the analyze operation and returns its polling location.
func (c *Client) submit(ctx context.Context, content []byte) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/prebuilt-read:analyze?api-version=%s",
		c.endpoint, c.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("document intelligence error (status %d): %s", resp.StatusCode, string(body))
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", fmt.Errorf("document intelligence returned no operation location")
	}
	return location, nil
}

// poll fetches the operation result until it succeeds, fails, or the
// poll timeout elapses.
func (c *Client) poll(ctx context.Context, location string) (*analyzeResult, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll result: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read poll response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("document intelligence error (status %d): %s", resp.StatusCode, string(body))
		}

		var result analyzeResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			msg := "unknown error"
			if result.Error != nil {
				msg = result.Error.Message
			}
			return nil, fmt.Errorf("document intelligence analysis failed: %s", msg)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("document intelligence analysis timed out after %s", c.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}
