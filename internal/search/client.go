package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragdesk/internal/metrics"
	"ragdesk/internal/pkg/retry"
)

const vectorField = "content_vector"

type Config struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	Timeout    time.Duration
	Retry      retry.Policy
}

// StatusError is returned when the search service answers with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search %s response status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Status
}

// Client talks to the Azure AI Search REST API for a single index.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Hit is one ranked result of a search request.
type Hit struct {
	Score   float64 `json:"@search.score"`
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  *string `json:"source"`
	Page    *int    `json:"page"`
	URL     *string `json:"url"`
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	Search        string        `json:"search"`
	Top           int           `json:"top"`
	Select        string        `json:"select"`
	VectorQueries []vectorQuery `json:"vectorQueries,omitempty"`
}

// HybridSearch runs the query text against the lexical index and, when vector
// is non-empty, against content_vector in the same request. Ranking happens
// server side; hits come back in service order.
func (c *Client) HybridSearch(ctx context.Context, query string, vector []float32, k int) ([]Hit, error) {
	reqBody := searchRequest{
		Search: query,
		Top:    k,
		Select: "id,content,source,page,url",
	}
	if len(vector) > 0 {
		reqBody.VectorQueries = []vectorQuery{{
			Kind:   "vector",
			Vector: vector,
			Fields: vectorField,
			K:      k,
		}}
	}

	raw, err := retry.Do(ctx, c.cfg.Retry, func() ([]byte, error) {
		return c.do(ctx, "query", http.MethodPost, c.indexURL("/docs/search"), reqBody)
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Value []Hit `json:"value"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse search json failed: %w", err)
	}
	return parsed.Value, nil
}

func (c *Client) indexURL(suffix string) string {
	return c.serviceURL("/indexes/" + url.PathEscape(c.cfg.Index) + suffix)
}

func (c *Client) serviceURL(path string) string {
	q := url.Values{}
	q.Set("api-version", c.cfg.APIVersion)
	return strings.TrimRight(c.cfg.Endpoint, "/") + path + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal search %s request failed: %w", op, err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build search %s request failed: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("azure_search", op, 0, time.Since(start))
		return nil, fmt.Errorf("search %s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("azure_search", op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search %s response failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
