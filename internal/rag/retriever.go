package rag

import (
	"context"
	"fmt"
	"strings"

	"ragdesk/internal/model"
	"ragdesk/internal/search"
)

// DefaultTopK is the number of passages fetched per turn.
const DefaultTopK = 4

const unknownSource = "unknown"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	HybridSearch(ctx context.Context, query string, vector []float32, k int) ([]search.Hit, error)
}

// HybridRetriever embeds the query and asks the search index for the top k
// passages using combined lexical and vector ranking.
type HybridRetriever struct {
	embedder Embedder
	searcher Searcher
	k        int
}

func NewHybridRetriever(embedder Embedder, searcher Searcher, k int) *HybridRetriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &HybridRetriever{
		embedder: embedder,
		searcher: searcher,
		k:        k,
	}
}

func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]model.Passage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	hits, err := r.searcher.HybridSearch(ctx, query, vector, r.k)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	return PassagesFromHits(hits, r.k), nil
}

// PassagesFromHits keeps service ranking order and at most k hits.
func PassagesFromHits(hits []search.Hit, k int) []model.Passage {
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	passages := make([]model.Passage, 0, len(hits))
	for _, hit := range hits {
		source := unknownSource
		if hit.Source != nil && *hit.Source != "" {
			source = *hit.Source
		}
		passages = append(passages, model.Passage{
			Content: hit.Content,
			Source:  source,
			Page:    hit.Page,
			URL:     hit.URL,
		})
	}
	return passages
}

// JoinPassages concatenates passage texts separated by a blank line.
func JoinPassages(passages []model.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	return strings.Join(texts, "\n\n")
}

// Citations projects passage metadata one-to-one, preserving order.
func Citations(passages []model.Passage) []model.Citation {
	citations := make([]model.Citation, len(passages))
	for i, p := range passages {
		citations[i] = p.Citation()
	}
	return citations
}
