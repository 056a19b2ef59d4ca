package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/s7ern/kbrag-go/internal/rag"
)

// fakeEmbedder returns a fixed-width vector per input text.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

// captureStore records every upserted document.
type captureStore struct {
	docs       []rag.Document
	embeddings [][]float32
}

func (s *captureStore) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	s.docs = append(s.docs, docs...)
	s.embeddings = append(s.embeddings, embeddings...)
	return nil
}
func (s *captureStore) Search(context.Context, []float32, int) ([]rag.Document, error) {
	return nil, nil
}
func (s *captureStore) Delete(context.Context, []string) error { return nil }
func (s *captureStore) Clear(context.Context) error            { return nil }
func (s *captureStore) Close() error                           { return nil }

// plainTextReaders registers the text extensions the pipeline tests use so
// they can exercise chunking and upserting without document fixtures.
func plainTextReaders() map[string]Reader {
	read := ReaderFunc(func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	return map[string]Reader{".txt": read, ".md": read}
}

func TestIngestFile_Text(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	content := strings.Repeat("order books thinned out after the listing. ", 120)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	emb := &fakeEmbedder{}
	store := &captureStore{}
	in, err := NewIngestor(emb, &Config{ChunkSize: 2000, ChunkOverlap: 100, Readers: plainTextReaders()})
	if err != nil {
		t.Fatal(err)
	}

	n, err := in.IngestFile(context.Background(), store, path)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if n == 0 {
		t.Fatal("expected at least one chunk")
	}
	if len(store.docs) != n {
		t.Errorf("store received %d docs, reported %d", len(store.docs), n)
	}
	if len(store.embeddings) != len(store.docs) {
		t.Errorf("embeddings (%d) not parallel to docs (%d)", len(store.embeddings), len(store.docs))
	}

	doc := store.docs[0]
	if doc.Source != path {
		t.Errorf("source = %q, want %q", doc.Source, path)
	}
	if doc.Metadata["format"] != "markdown" {
		t.Errorf("format = %q, want markdown", doc.Metadata["format"])
	}
	if doc.Metadata["chunk_index"] != "0" {
		t.Errorf("chunk_index = %q, want 0", doc.Metadata["chunk_index"])
	}
	if doc.ID != ChunkID(path, 0) {
		t.Errorf("chunk IDs must be deterministic: %q", doc.ID)
	}
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	in, err := NewIngestor(emb, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = in.IngestFile(context.Background(), &captureStore{}, "/uploads/kb/blob.bin")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if emb.calls != 0 {
		t.Error("unsupported file must fail before embedding")
	}
}

func TestIngestFile_UnreadableFileSkipped(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	store := &captureStore{}
	in, err := NewIngestor(emb, &Config{
		Readers: map[string]Reader{
			".txt": ReaderFunc(func(string) (string, error) {
				return "", fmt.Errorf("garbled stream")
			}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A file the reader cannot parse is a logged no-op, not a failure.
	n, err := in.IngestFile(context.Background(), store, "/uploads/kb/corrupt.txt")
	if err != nil {
		t.Fatalf("unreadable file must not fail the ingest: %v", err)
	}
	if n != 0 {
		t.Errorf("chunks = %d, want 0", n)
	}
	if emb.calls != 0 || len(store.docs) != 0 {
		t.Error("unreadable file must not reach embedder or store")
	}
}

func TestIngestFile_ReingestSameIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("fixed content"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &captureStore{}
	in, err := NewIngestor(&fakeEmbedder{}, &Config{Readers: plainTextReaders()})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := in.IngestFile(context.Background(), store, path); err != nil {
		t.Fatal(err)
	}
	if _, err := in.IngestFile(context.Background(), store, path); err != nil {
		t.Fatal(err)
	}
	if store.docs[0].ID != store.docs[1].ID {
		t.Errorf("re-ingest produced different IDs: %q vs %q", store.docs[0].ID, store.docs[1].ID)
	}
}

func TestIngestURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Root</title></head><body>
			<p>funding rates turned negative</p>
			<a href="/more">more</a>
		</body></html>`)
	})
	mux.HandleFunc("/more", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>More</title></head><body>open interest dropped</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := &captureStore{}
	in, err := NewIngestor(&fakeEmbedder{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	n, err := in.IngestURL(context.Background(), store, srv.URL+"/")
	if err != nil {
		t.Fatalf("IngestURL failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 chunks (one per page), got %d", n)
	}

	byTitle := map[string]bool{}
	for _, d := range store.docs {
		byTitle[d.Metadata["title"]] = true
		if d.Metadata["kind"] != "url" {
			t.Errorf("kind = %q, want url", d.Metadata["kind"])
		}
	}
	if !byTitle["Root"] || !byTitle["More"] {
		t.Errorf("expected both page titles in metadata, got %v", byTitle)
	}
}

func TestIngestURL_UnreachableStartPageSkipped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	emb := &fakeEmbedder{}
	store := &captureStore{}
	in, err := NewIngestor(emb, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A dead start page is logged and skipped, same as a corrupt file.
	n, err := in.IngestURL(context.Background(), store, srv.URL)
	if err != nil {
		t.Fatalf("unreachable url must not fail the ingest: %v", err)
	}
	if n != 0 {
		t.Errorf("chunks = %d, want 0", n)
	}
	if emb.calls != 0 || len(store.docs) != 0 {
		t.Error("unreachable url must not reach embedder or store")
	}
}
