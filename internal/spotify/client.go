package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com/v1"

	defaultPageSize          = 50
	defaultInsertChunkSize   = 100
	defaultDeleteChunkSize   = 50
	defaultRequestsPerSecond = 8
)

// CredentialSource supplies the current credential for a request. It is
// consulted on every call, so a refresh performed elsewhere is visible to
// subsequent requests without rebuilding the client.
type CredentialSource func() models.Credential

// Options configures a [Client].
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Credentials       CredentialSource
	PageSize          int
	InsertChunkSize   int
	DeleteChunkSize   int
	RequestsPerSecond int
}

// Client is an authenticated Spotify Web API accessor.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	credentials     CredentialSource
	limiter         *rate.Limiter
	pageSize        int
	insertChunkSize int
	deleteChunkSize int
}

// New creates a Client. Credentials is required; everything else falls back
// to defaults matching the Spotify API's documented limits.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.InsertChunkSize <= 0 {
		opts.InsertChunkSize = defaultInsertChunkSize
	}
	if opts.DeleteChunkSize <= 0 {
		opts.DeleteChunkSize = defaultDeleteChunkSize
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}

	return &Client{
		baseURL:         opts.BaseURL,
		httpClient:      opts.HTTPClient,
		credentials:     opts.Credentials,
		limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		pageSize:        opts.PageSize,
		insertChunkSize: opts.InsertChunkSize,
		deleteChunkSize: opts.DeleteChunkSize,
	}
}

// do performs an authenticated request against the given absolute URL and
// decodes the JSON response into result when non-nil.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request canceled: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	cred := c.credentials()
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// get performs a GET against a path relative to the API root.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, c.baseURL+path, nil, result)
}

// decodeError maps a non-2xx response body to an [APIError], preferring the
// structured envelope when the body carries one.
func decodeError(status int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Status != 0 {
		return &APIError{Status: envelope.Error.Status, Message: envelope.Error.Message}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}

func retryAfter(resp *http.Response) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
