// Package docs is a minimal Google Docs REST v1 client covering the two
// calls the resizer needs: fetching a document and submitting batchUpdate.
package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
)

// DefaultBaseURL is the public Docs API endpoint.
const DefaultBaseURL = "https://docs.googleapis.com"

// Client talks to the Docs API on behalf of one access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client authenticated with a bearer access token.
// requestsPerSecond <= 0 disables client-side rate limiting.
func NewClient(ctx context.Context, baseURL, accessToken string, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = 60 * time.Second

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// GetDocument fetches and decodes a document snapshot.
func (c *Client) GetDocument(ctx context.Context, docID string) (*doctree.Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(docID), nil)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	doc, err := doctree.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", docID, err)
	}
	return doc, nil
}

// BatchUpdate submits requests in one call. The service applies them in
// order and atomically; replies are positionally aligned with requests.
func (c *Client) BatchUpdate(ctx context.Context, docID string, requests []Request) ([]Response, error) {
	payload, err := json.Marshal(batchUpdateRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(docID)+":batchUpdate", payload)
	if err != nil {
		return nil, err
	}
	var resp batchUpdateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return resp.Replies, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport("docs api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classify(resp.StatusCode, respBody)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, classifyTransport("read response", err)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
