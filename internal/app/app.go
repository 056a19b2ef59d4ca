// Package app is the composition root for the knowledge-base service. It
// wires the chat model, embedder, vector store, run store, ingestion
// pipeline, web search client, and ingestion ledger into the operations the
// HTTP handlers expose. One App serves every knowledge base; vector stores
// are opened lazily per collection and cached for the process lifetime.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/s7ern/kbrag-go/internal/assistant"
	"github.com/s7ern/kbrag-go/internal/embedder"
	"github.com/s7ern/kbrag-go/internal/ingest"
	"github.com/s7ern/kbrag-go/internal/kb"
	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/rag"
	"github.com/s7ern/kbrag-go/internal/search"
	"github.com/s7ern/kbrag-go/internal/store"
)

// DefaultUploadDir is where uploaded files are stored when no directory is
// configured.
const DefaultUploadDir = "uploads"

// storeOpener opens a vector store for a named collection. The production
// implementation dials Qdrant; tests inject an in-memory fake.
type storeOpener func(ctx context.Context, collection string) (rag.VectorStore, error)

// Config holds the dependencies and settings for constructing an App.
type Config struct {
	// ChatModel is the LLM backend shared by the chat and report assistants.
	ChatModel assistant.ChatStreamer

	// Embedder converts text to vectors for ingestion and retrieval.
	Embedder rag.Embedder

	// EmbeddingModel is the embedding model name; it decides the collection
	// mapping and vector dimensionality.
	EmbeddingModel string

	// Runs persists chat runs so a knowledge base resumes its thread.
	Runs store.RunStore

	// Searcher runs the web search behind report generation. May be nil if
	// report generation is not configured.
	Searcher search.Searcher

	// Qdrant holds the connection settings shared by every collection.
	Qdrant rag.QdrantConfig

	// UploadDir is the root directory for uploaded files
	// (default: "uploads").
	UploadDir string

	// Ingest configures the chunking and crawl bounds.
	Ingest *ingest.Config

	// OpenStore overrides the Qdrant store constructor. Tests only.
	OpenStore storeOpener
}

// App implements the knowledge-base operations behind the HTTP API.
type App struct {
	chatModel      assistant.ChatStreamer
	embedder       rag.Embedder
	embeddingModel string
	runs           store.RunStore
	ingestor       *ingest.Ingestor
	research       *assistant.ResearchAssistant
	ledger         *kb.Ledger
	uploadDir      string
	openStore      storeOpener

	mu     sync.Mutex
	stores map[string]rag.VectorStore
}

// New constructs an App from the provided config.
func New(cfg *Config) (*App, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("app: ChatModel must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("app: Embedder must not be nil")
	}
	if cfg.Runs == nil {
		return nil, fmt.Errorf("app: Runs must not be nil")
	}

	ingestor, err := ingest.NewIngestor(cfg.Embedder, cfg.Ingest)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	var research *assistant.ResearchAssistant
	if cfg.Searcher != nil {
		research, err = assistant.NewResearch(&assistant.ResearchConfig{
			ChatModel: cfg.ChatModel,
			Searcher:  cfg.Searcher,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}

	openStore := cfg.OpenStore
	if openStore == nil {
		qdrantCfg := cfg.Qdrant
		dims := embedder.Dimensions(embedder.ResolveKind(cfg.EmbeddingModel))
		openStore = func(ctx context.Context, collection string) (rag.VectorStore, error) {
			c := qdrantCfg
			c.Collection = collection
			c.VectorSize = uint64(dims)
			return rag.NewQdrantStore(ctx, &c)
		}
	}

	return &App{
		chatModel:      cfg.ChatModel,
		embedder:       cfg.Embedder,
		embeddingModel: cfg.EmbeddingModel,
		runs:           cfg.Runs,
		ingestor:       ingestor,
		research:       research,
		ledger:         kb.NewLedger(),
		uploadDir:      uploadDir,
		openStore:      openStore,
		stores:         make(map[string]rag.VectorStore),
	}, nil
}

// storeFor returns the vector store for the collection a knowledge base
// resolves to, opening and caching it on first use.
func (a *App) storeFor(ctx context.Context, kbName string) (rag.VectorStore, string, error) {
	collection := kb.Resolve(kbName, a.embeddingModel)

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.stores[collection]; ok {
		return s, collection, nil
	}

	s, err := a.openStore(ctx, collection)
	if err != nil {
		return nil, "", fmt.Errorf("app: open store for %q: %w", collection, err)
	}
	a.stores[collection] = s
	return s, collection, nil
}

// ChatStream answers userPrompt against the named knowledge base and returns
// a channel of response chunks. The conversation resumes the knowledge base's
// most recent run, creating one on first contact.
func (a *App) ChatStream(ctx context.Context, kbName, userPrompt string) (<-chan string, error) {
	vs, collection, err := a.storeFor(ctx, kbName)
	if err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetriever(a.embedder, vs, 0)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	runID, err := a.resumeRun(ctx, collection)
	if err != nil {
		return nil, err
	}

	chat, err := assistant.New(&assistant.Config{
		ChatModel: a.chatModel,
		Retriever: retriever,
		Runs:      a.runs,
		RunID:     runID,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return chat.RunStream(ctx, userPrompt)
}

// resumeRun returns the most recent run for the user, creating one when none
// exists yet.
func (a *App) resumeRun(ctx context.Context, userID string) (string, error) {
	ids, err := a.runs.RunIDs(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("app: list runs: %w", err)
	}
	if len(ids) > 0 {
		return ids[0], nil
	}
	id, err := a.runs.CreateRun(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("app: create run: %w", err)
	}
	return id, nil
}

// IngestUpload saves the uploaded file under the knowledge base's upload
// directory and ingests it. It returns the number of chunks written. An
// unsupported file format is reported via ingest.ErrUnsupportedFormat so the
// caller can skip the file without failing the request.
func (a *App) IngestUpload(ctx context.Context, kbName, filename string, src io.Reader) (int, error) {
	vs, collection, err := a.storeFor(ctx, kbName)
	if err != nil {
		return 0, err
	}

	path, err := a.saveUpload(collection, filename, src)
	if err != nil {
		return 0, err
	}

	n, err := a.ingestor.IngestFile(ctx, vs, path)
	if err != nil {
		return 0, err
	}

	// An empty parse stores nothing and leaves the ledger alone.
	if n > 0 {
		a.ledger.Record(collection, kb.Source{
			URI:        path,
			Kind:       "file",
			Chunks:     n,
			IngestedAt: time.Now(),
		})
	}
	logging.FromContext(ctx).Info("file ingested",
		slog.String("kb", collection),
		slog.String("file", filename),
		slog.Int("chunks", n),
	)
	return n, nil
}

// IngestURL crawls rawURL within the configured bounds and ingests every
// fetched page into the named knowledge base.
func (a *App) IngestURL(ctx context.Context, kbName, rawURL string) (int, error) {
	vs, collection, err := a.storeFor(ctx, kbName)
	if err != nil {
		return 0, err
	}

	n, err := a.ingestor.IngestURL(ctx, vs, rawURL)
	if err != nil {
		return n, err
	}

	if n > 0 {
		a.ledger.Record(collection, kb.Source{
			URI:        rawURL,
			Kind:       "url",
			Chunks:     n,
			IngestedAt: time.Now(),
		})
	}
	logging.FromContext(ctx).Info("url ingested",
		slog.String("kb", collection),
		slog.String("url", rawURL),
		slog.Int("chunks", n),
	)
	return n, nil
}

// ListFiles returns the file names stored under the knowledge base's upload
// directory. A knowledge base with no uploads yields an empty list, not an
// error.
func (a *App) ListFiles(kbName string) ([]string, error) {
	collection := kb.Resolve(kbName, a.embeddingModel)
	dir := filepath.Join(a.uploadDir, collection)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable or missing entries
		}
		if !d.IsDir() {
			files = append(files, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("app: list %q: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Clear drops the knowledge base's collection, recreates it empty, removes
// its upload directory, and forgets its ledger entries. It returns the upload
// path that was removed.
func (a *App) Clear(ctx context.Context, kbName string) (string, error) {
	vs, collection, err := a.storeFor(ctx, kbName)
	if err != nil {
		return "", err
	}

	if err := vs.Clear(ctx); err != nil {
		return "", fmt.Errorf("app: clear %q: %w", collection, err)
	}

	dir := filepath.Join(a.uploadDir, collection)
	if err := os.RemoveAll(dir); err != nil {
		logging.FromContext(ctx).Warn("failed to remove upload directory",
			slog.String("dir", dir),
			slog.Any("error", err),
		)
	}
	a.ledger.Clear(collection)

	logging.FromContext(ctx).Info("knowledge base cleared", slog.String("kb", collection))
	return dir, nil
}

// Report searches the web for the topic and generates a structured markdown
// report. Returns assistant.ErrNoSearchResults when the search comes back
// empty.
func (a *App) Report(ctx context.Context, topic string) (string, error) {
	if a.research == nil {
		return "", fmt.Errorf("app: report generation is not configured")
	}
	return a.research.Generate(ctx, topic)
}

// Close releases every cached vector store connection.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for name, s := range a.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("app: close store %q: %w", name, err)
		}
		delete(a.stores, name)
	}
	return firstErr
}

// saveUpload writes the uploaded content under <uploadDir>/<kb>/<filename>.
// The file name is flattened to its base so a crafted name cannot escape the
// upload directory.
func (a *App) saveUpload(collection, filename string, src io.Reader) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("app: invalid file name %q", filename)
	}

	dir := filepath.Join(a.uploadDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("app: create upload dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("app: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("app: write %s: %w", path, err)
	}
	return path, nil
}
