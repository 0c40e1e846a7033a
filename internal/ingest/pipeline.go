package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragdesk/internal/pkg/pdfextract"
	"ragdesk/internal/search"
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Uploader interface {
	Upload(ctx context.Context, docs []search.Document) ([]search.IndexResult, error)
}

// Extractor returns the text pages of the file at path.
type Extractor func(path string) ([]pdfextract.Page, error)

type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	// Concurrency caps in-flight embedding requests.
	Concurrency int
}

// Chunk is a piece of a source page ready to be embedded.
type Chunk struct {
	Content string
	Source  string
	Page    int
	ChunkID string
	URL     *string
}

type Result struct {
	Files    int
	Chunks   int
	Uploaded int
	Failed   []search.IndexResult
}

type Pipeline struct {
	embedder Embedder
	uploader Uploader
	extract  Extractor
	opts     Options
	logger   *zap.Logger
	newID    func() string
}

func NewPipeline(embedder Embedder, uploader Uploader, extract Extractor, opts Options, logger *zap.Logger) *Pipeline {
	if extract == nil {
		extract = pdfextract.ExtractFile
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 16
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		embedder: embedder,
		uploader: uploader,
		extract:  extract,
		opts:     opts,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Chunk extracts and splits every file. chunk_id counts chunks within a
// file across its pages.
func (p *Pipeline) Chunk(files []SourceFile) ([]Chunk, error) {
	var chunks []Chunk
	for _, f := range files {
		pages, err := p.extract(f.Path)
		if err != nil {
			return nil, fmt.Errorf("extract %s failed: %w", f.Source, err)
		}
		n := 0
		for _, page := range pages {
			for _, text := range SplitText(page.Text, p.opts.ChunkSize, p.opts.ChunkOverlap) {
				chunks = append(chunks, Chunk{
					Content: text,
					Source:  f.Source,
					Page:    page.Number,
					ChunkID: fmt.Sprintf("%06d", n),
					URL:     PageURL(f.URL, page.Number),
				})
				n++
			}
		}
		p.logger.Debug("file chunked", zap.String("source", f.Source), zap.Int("pages", len(pages)), zap.Int("chunks", n))
	}
	return chunks, nil
}

// Documents embeds chunks in batches and returns index documents in chunk order.
func (p *Pipeline) Documents(ctx context.Context, chunks []Chunk) ([]search.Document, error) {
	docs := make([]search.Document, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for start := 0; start < len(chunks); start += p.opts.EmbedBatchSize {
		end := start + p.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vectors, err := p.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d failed: %w", start, start+len(batch)-1, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, start+len(batch)-1, len(vectors))
			}
			for i, c := range batch {
				page := c.Page
				docs[start+i] = search.Document{
					ID:            p.newID(),
					Content:       c.Content,
					ContentVector: vectors[i],
					Source:        c.Source,
					Page:          &page,
					ChunkID:       c.ChunkID,
					URL:           c.URL,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Run chunks, embeds and uploads files. Per-document rejections are logged
// and reported in Result; they do not fail the run.
func (p *Pipeline) Run(ctx context.Context, files []SourceFile) (*Result, error) {
	chunks, err := p.Chunk(files)
	if err != nil {
		return nil, err
	}
	docs, err := p.Documents(ctx, chunks)
	if err != nil {
		return nil, err
	}

	failed, err := p.uploader.Upload(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("upload documents failed: %w", err)
	}
	for _, f := range failed {
		p.logger.Warn("document rejected",
			zap.String("key", f.Key),
			zap.Int("status_code", f.StatusCode),
			zap.String("error", f.ErrorMessage),
		)
	}

	res := &Result{
		Files:    len(files),
		Chunks:   len(chunks),
		Uploaded: len(docs) - len(failed),
		Failed:   failed,
	}
	p.logger.Info("ingest finished",
		zap.Int("files", res.Files),
		zap.Int("chunks", res.Chunks),
		zap.Int("uploaded", res.Uploaded),
		zap.Int("failed", len(failed)),
	)
	return res, nil
}
