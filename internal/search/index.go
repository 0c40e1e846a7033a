package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ragdesk/internal/pkg/retry"
)

// MaxUploadBatch is the service limit on documents per index request.
const MaxUploadBatch = 1000

type Field struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Facetable           bool   `json:"facetable"`
	Analyzer            string `json:"analyzer,omitempty"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

type IndexDefinition struct {
	Name         string          `json:"name"`
	Fields       []Field         `json:"fields"`
	VectorSearch json.RawMessage `json:"vectorSearch,omitempty"`
}

// PassageIndex describes the chunk index served by the retriever:
// id, content, source, page, chunk_id, url and the content_vector field.
func PassageIndex(name string, dimensions int) IndexDefinition {
	return IndexDefinition{
		Name: name,
		Fields: []Field{
			{Name: "id", Type: "Edm.String", Key: true, Filterable: true},
			{Name: "content", Type: "Edm.String", Searchable: true, Analyzer: "en.lucene"},
			{Name: "source", Type: "Edm.String", Filterable: true, Facetable: true},
			{Name: "page", Type: "Edm.Int32", Filterable: true, Facetable: true},
			{Name: "chunk_id", Type: "Edm.String", Filterable: true},
			{Name: "url", Type: "Edm.String"},
			{
				Name:                vectorField,
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				Dimensions:          dimensions,
				VectorSearchProfile: "vector-profile",
			},
		},
		VectorSearch: json.RawMessage(`{"algorithms":[{"name":"hnsw-alg","kind":"hnsw"}],"profiles":[{"name":"vector-profile","algorithm":"hnsw-alg"}]}`),
	}
}

// RecreateIndex drops the configured index (a missing index is fine) and
// creates it from def.
func (c *Client) RecreateIndex(ctx context.Context, def IndexDefinition) error {
	if _, err := c.do(ctx, "delete index", http.MethodDelete, c.indexURL(""), nil); err != nil {
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Status != http.StatusNotFound {
			return err
		}
	}
	if _, err := c.do(ctx, "create index", http.MethodPost, c.serviceURL("/indexes"), def); err != nil {
		return err
	}
	return nil
}

// Document is one chunk as stored in the index.
type Document struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	ContentVector []float32 `json:"content_vector"`
	Source        string    `json:"source"`
	Page          *int      `json:"page"`
	ChunkID       string    `json:"chunk_id"`
	URL           *string   `json:"url"`
}

// IndexResult reports the outcome for a single uploaded document.
type IndexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

// Upload sends docs in batches of at most MaxUploadBatch and returns the
// per-document results that did not succeed.
func (c *Client) Upload(ctx context.Context, docs []Document) ([]IndexResult, error) {
	var failed []IndexResult
	for start := 0; start < len(docs); start += MaxUploadBatch {
		end := start + MaxUploadBatch
		if end > len(docs) {
			end = len(docs)
		}
		results, err := c.uploadBatch(ctx, docs[start:end])
		if err != nil {
			return failed, err
		}
		for _, r := range results {
			if !r.Status {
				failed = append(failed, r)
			}
		}
	}
	return failed, nil
}

func (c *Client) uploadBatch(ctx context.Context, docs []Document) ([]IndexResult, error) {
	type action struct {
		Action string `json:"@search.action"`
		Document
	}
	actions := make([]action, len(docs))
	for i := range docs {
		actions[i] = action{Action: "upload", Document: docs[i]}
	}
	body := map[string]interface{}{"value": actions}

	// A 207 answer still carries per-document results and is parsed like a 200.
	raw, err := retry.Do(ctx, c.cfg.Retry, func() ([]byte, error) {
		return c.do(ctx, "index", http.MethodPost, c.indexURL("/docs/index"), body)
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Value []IndexResult `json:"value"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse index json failed: %w", err)
	}
	return parsed.Value, nil
}
