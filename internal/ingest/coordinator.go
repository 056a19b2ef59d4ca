package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to DefaultChunkOverlap if zero.
	ChunkOverlap int

	// Website configures the bounded crawl used for URL ingestion.
	Website *WebsiteConfig

	// Readers registers extra file extensions (lowercase, with dot) on top
	// of the stock document formats. An entry for a stock extension
	// overrides it.
	Readers map[string]Reader
}

// Ingestor orchestrates the read → chunk → embed → upsert flow for files and
// URLs. The target vector store is passed per call because each knowledge
// base is backed by its own collection.
type Ingestor struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// website performs the bounded crawl for URL ingestion.
	website *WebsiteReader

	// readers dispatches file extensions to text extractors.
	readers readerRegistry

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewIngestor constructs an Ingestor from the provided dependencies and config.
func NewIngestor(embedder rag.Embedder, cfg *Config) (*Ingestor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}

	readers := defaultReaders()
	for ext, r := range cfg.Readers {
		readers[ext] = r
	}

	return &Ingestor{
		embedder: embedder,
		website:  NewWebsiteReader(cfg.Website),
		readers:  readers,
		cfg:      cfg,
	}, nil
}

// IngestFile extracts text from the file at path, chunks it, embeds the
// chunks, and upserts them into store. It returns the number of chunks
// written. An unsupported extension fails before any network or store call;
// a file the reader cannot parse is logged and skipped with zero chunks, so
// one corrupt file never fails a batch upload.
func (in *Ingestor) IngestFile(ctx context.Context, store rag.VectorStore, path string) (int, error) {
	reader, err := in.readers.For(path)
	if err != nil {
		return 0, err
	}

	text, err := reader.Read(path)
	if err != nil {
		logging.FromContext(ctx).Warn("skipping unreadable file",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return 0, nil
	}

	meta := InferFileMetadata(path)
	return in.ingestText(ctx, store, path, text, map[string]string{
		"kind":          meta.Kind,
		"format":        meta.Format,
		"content_class": meta.ContentClass,
	})
}

// IngestURL crawls the given URL within the configured bounds and ingests
// every fetched page. It returns the total number of chunks written. An
// unreachable or unparsable start page is logged and skipped with zero
// chunks.
func (in *Ingestor) IngestURL(ctx context.Context, store rag.VectorStore, rawURL string) (int, error) {
	pages, err := in.website.Crawl(ctx, rawURL)
	if err != nil {
		logging.FromContext(ctx).Warn("skipping unreachable url",
			slog.String("url", rawURL),
			slog.Any("error", err),
		)
		return 0, nil
	}

	total := 0
	for _, page := range pages {
		meta := InferURLMetadata(page.URL)
		attrs := map[string]string{
			"kind":          meta.Kind,
			"format":        meta.Format,
			"content_class": meta.ContentClass,
		}
		if page.Title != "" {
			attrs["title"] = page.Title
		}
		n, err := in.ingestText(ctx, store, page.URL, page.Text, attrs)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ingestText chunks, embeds, and upserts one source's text. Chunk IDs are
// derived from the source URI so re-ingesting overwrites prior points.
func (in *Ingestor) ingestText(ctx context.Context, store rag.VectorStore, source, text string, attrs map[string]string) (int, error) {
	chunks := Chunk(text, in.cfg.ChunkSize, in.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingest: embedding failed for %s: %w", source, err)
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			"chunk_index": fmt.Sprintf("%d", i),
		}
		for k, v := range attrs {
			metadata[k] = v
		}
		docs = append(docs, rag.Document{
			ID:       ChunkID(source, i),
			Content:  chunk,
			Source:   source,
			Metadata: metadata,
		})
	}

	if err := store.Upsert(ctx, docs, embeddings); err != nil {
		return 0, fmt.Errorf("ingest: upsert failed for %s: %w", source, err)
	}

	return len(chunks), nil
}
