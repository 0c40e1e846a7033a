package ai

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

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config addresses an Azure OpenAI resource. Chat and embedding calls use
// separate deployments and may pin separate API versions.
type Config struct {
	Endpoint        string
	APIKey          string
	Deployment      string
	APIVersion      string
	EmbedDeployment string
	EmbedAPIVersion string
	Timeout         time.Duration
	Retry           retry.Policy
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s response status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Status
}

type AzureOpenAIClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewAzureOpenAIClient(cfg Config) *AzureOpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &AzureOpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends messages to the chat deployment at temperature 0 and
// returns the first choice's content.
func (c *AzureOpenAIClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := map[string]interface{}{
		"messages":    messages,
		"temperature": 0,
		"stream":      false,
	}

	raw, err := retry.Do(ctx, c.cfg.Retry, func() ([]byte, error) {
		return c.post(ctx, "llm", c.deploymentURL(c.cfg.Deployment, "chat/completions", c.cfg.APIVersion), reqBody)
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *AzureOpenAIClient) deploymentURL(deployment, operation, apiVersion string) string {
	q := url.Values{}
	q.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/openai/deployments/%s/%s?%s",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		url.PathEscape(deployment),
		operation,
		q.Encode(),
	)
}

func (c *AzureOpenAIClient) post(ctx context.Context, op, endpoint string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request failed: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build %s request failed: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("azure_openai", op, 0, time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("azure_openai", op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
