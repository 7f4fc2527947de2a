// Package kapa is a client for the Kapa AI retrieval API, the backend
// answering documentation search queries behind the MCP gateway. Upstream
// failures never surface as Go errors to the RPC layer: the client always
// returns a JSON payload, substituting a structured error object when the
// API is unreachable or unhappy, so the JSON-RPC contract stays stable
// during outages.
package kapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAPIBaseURL is the Kapa API base. Overridable for tests.
const DefaultAPIBaseURL = "https://api.kapa.ai"

// DefaultTopK is how many retrieval results to request per query.
const DefaultTopK = 5

// maxResponseBytes bounds how much of an upstream response is read.
const maxResponseBytes = 1 << 20

// Config holds Kapa client configuration.
type Config struct {
	// APIKey authenticates to the Kapa API (required).
	APIKey string

	// ProjectID is the Kapa project to query (required).
	ProjectID string

	// IntegrationID attributes queries to an integration (required).
	IntegrationID string

	// APIBaseURL overrides the API base URL.
	APIBaseURL string

	// TopK is the number of results to request (default 5).
	TopK int

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds each query (default 15s).
	RequestTimeout time.Duration

	// Logger is the optional structured logger (default slog.Default()).
	Logger *slog.Logger
}

// Client queries the Kapa retrieval API.
type Client struct {
	apiKey         string
	projectID      string
	integrationID  string
	baseURL        string
	topK           int
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         *slog.Logger
}

// New creates a Kapa client. Missing credentials are a startup error.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("kapa: API key is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("kapa: project ID is required")
	}
	if cfg.IntegrationID == "" {
		return nil, errors.New("kapa: integration ID is required")
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:         cfg.APIKey,
		projectID:      cfg.ProjectID,
		integrationID:  cfg.IntegrationID,
		baseURL:        baseURL,
		topK:           topK,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		logger:         logger,
	}, nil
}

// Retrieve runs a documentation retrieval query and returns the raw Kapa
// response payload. On any failure it returns a structured error payload
// instead; callers can hand the result to the RPC layer either way.
func (c *Client) Retrieve(ctx context.Context, query string) json.RawMessage {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	body, err := json.Marshal(map[string]any{
		"integration_id": c.integrationID,
		"query":          query,
		"top_k":          c.topK,
	})
	if err != nil {
		return errorPayload("failed to encode query", 0)
	}

	url := fmt.Sprintf("%s/query/v1/projects/%s/retrieval/", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errorPayload("failed to build retrieval request", 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Kapa retrieval request failed", "error", err)
		return errorPayload("documentation search backend unreachable", 0)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error("Reading Kapa response failed", "error", err)
		return errorPayload("failed to read backend response", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Kapa retrieval returned non-success status",
			"status", resp.StatusCode)
		return errorPayload("documentation search backend error", resp.StatusCode)
	}

	if !json.Valid(data) {
		c.logger.Warn("Kapa retrieval returned invalid JSON")
		return errorPayload("backend returned malformed response", resp.StatusCode)
	}

	return data
}

func errorPayload(message string, status int) json.RawMessage {
	payload := map[string]any{"error": message}
	if status != 0 {
		payload["status"] = status
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{"error":"internal error"}`)
	}
	return data
}
