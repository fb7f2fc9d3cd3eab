// Package azsearch provides an index store adapter for Azure AI Search.
package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2023-11-01"
	DefaultTimeout    = 60 * time.Second
)

// Config holds configuration for the Azure AI Search store.
type Config struct {
	// Endpoint is the search service endpoint, e.g.
	// https://myservice.search.windows.net (required).
	Endpoint string

	// APIKey is the admin API key (required).
	APIKey string

	// IndexName is the target index (required).
	IndexName string

	// APIVersion is the API version query parameter (default: 2023-11-01).
	APIVersion string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Store pushes chunk records into an Azure AI Search index.
type Store struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	indexName  string
	apiVersion string
}

// searchDocument is the index record schema for one chunk.
type searchDocument struct {
	Action         string    `json:"@search.action"`
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id,omitempty"`
	Content        string    `json:"content,omitempty"`
	ContentVector  []float32 `json:"content_vector,omitempty"`
	ChunkIndex     int       `json:"chunk_index,omitempty"`
	TotalChunks    int       `json:"total_chunks,omitempty"`
	Title          string    `json:"title,omitempty"`
	SectionHeading string    `json:"section_heading,omitempty"`
	PageNumber     int       `json:"page_number,omitempty"`
	AllowedGroups  []string  `json:"group_ids,omitempty"`
	Filename       string    `json:"filename,omitempty"`
	WebURL         string    `json:"web_url,omitempty"`
	LastModified   string    `json:"last_modified,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
}

// indexBatchRequest is the documents-index API request format.
type indexBatchRequest struct {
	Value []searchDocument `json:"value"`
}

// indexBatchResponse is the documents-index API response format.
type indexBatchResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

// searchRequest is the search API request format.
type searchRequest struct {
	Filter string `json:"filter"`
	Select string `json:"select"`
	Top    int    `json:"top"`
}

// searchResponse is the search API response format.
type searchResponse struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

// NewStore creates a new Azure AI Search store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azsearch: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azsearch: API key is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("azsearch: index name is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
		apiVersion: cfg.APIVersion,
	}, nil
}

// Upsert merges-or-uploads the given chunks. Per-record failures are
// reported in the results; only transport-level failures error.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) ([]driven.UpsertResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	docs := make([]searchDocument, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, toSearchDocument(chunk))
	}

	resp, err := s.submitBatch(ctx, indexBatchRequest{Value: docs})
	if err != nil {
		return nil, err
	}

	results := make([]driven.UpsertResult, 0, len(resp.Value))
	for _, record := range resp.Value {
		results = append(results, driven.UpsertResult{
			ID:         record.Key,
			Succeeded:  record.Status,
			StatusCode: record.StatusCode,
			Message:    record.ErrorMessage,
		})
	}
	return results, nil
}

// Delete removes records by identifier. Missing identifiers are not an
// error; the service reports them as already absent.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	docs := make([]searchDocument, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, searchDocument{Action: "delete", ID: id})
	}

	_, err := s.submitBatch(ctx, indexBatchRequest{Value: docs})
	return err
}

// ChunkIDs returns up to limit record identifiers for the document.
func (s *Store) ChunkIDs(ctx context.Context, documentID string, limit int) ([]string, error) {
	reqBody := searchRequest{
		Filter: fmt.Sprintf("document_id eq '%s'", strings.ReplaceAll(documentID, "'", "''")),
		Select: "id",
		Top:    limit,
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", s.endpoint, s.indexName, s.apiVersion)
	body, err := s.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	ids := make([]string, 0, len(resp.Value))
	for _, record := range resp.Value {
		ids = append(ids, record.ID)
	}
	return ids, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// submitBatch posts one documents-index batch.
func (s *Store) submitBatch(ctx context.Context, batch indexBatchRequest) (*indexBatchResponse, error) {
	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", s.endpoint, s.indexName, s.apiVersion)
	body, err := s.post(ctx, url, batch)
	if err != nil {
		return nil, err
	}

	var resp indexBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// post sends one JSON request and returns the raw response body.
func (s *Store) post(ctx context.Context, url string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// 207 carries per-record statuses and is handled by the caller
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("azure search error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// toSearchDocument flattens a chunk into the index record schema.
func toSearchDocument(chunk domain.Chunk) searchDocument {
	doc := searchDocument{
		Action:         "mergeOrUpload",
		ID:             chunk.ID,
		DocumentID:     chunk.DocumentID,
		Content:        chunk.Content,
		ContentVector:  chunk.Embedding,
		ChunkIndex:     chunk.Index,
		TotalChunks:    chunk.TotalChunks,
		Title:          chunk.Title,
		SectionHeading: chunk.SectionHeading,
		PageNumber:     chunk.PageNumber,
		AllowedGroups:  chunk.AllowedGroups,
	}
	if v, ok := chunk.Metadata["filename"].(string); ok {
		doc.Filename = v
	}
	if v, ok := chunk.Metadata["web_url"].(string); ok {
		doc.WebURL = v
	}
	if v, ok := chunk.Metadata["last_modified"].(string); ok {
		doc.LastModified = v
	}
	if v, ok := chunk.Metadata["created_by"].(string); ok {
		doc.CreatedBy = v
	}
	return doc
}
