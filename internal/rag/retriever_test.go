package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector for any input.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeStore records the topK it was searched with.
type fakeStore struct {
	gotTopK int
	docs    []Document
}

func (f *fakeStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]Document, error) {
	f.gotTopK = topK
	return f.docs, nil
}
func (f *fakeStore) Delete(context.Context, []string) error { return nil }
func (f *fakeStore) Clear(context.Context) error            { return nil }
func (f *fakeStore) Close() error                           { return nil }

func TestNewRetriever_NilArgs(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 2); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 2); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{docs: []Document{{ID: "a", Content: "hello"}}}
	r, err := NewRetriever(&fakeEmbedder{}, store, 0)
	if err != nil {
		t.Fatal(err)
	}

	docs, err := r.Retrieve(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if store.gotTopK != 2 {
		t.Errorf("default topK = %d, want 2", store.gotTopK)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("unexpected docs: %+v", docs)
	}
}

func TestRetrieve_ExplicitTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r, err := NewRetriever(&fakeEmbedder{}, store, 2)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Retrieve(context.Background(), "query", 7); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if store.gotTopK != 7 {
		t.Errorf("topK = %d, want 7", store.gotTopK)
	}
}

func TestRetrieve_EmbedderError(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&fakeEmbedder{err: errors.New("boom")}, &fakeStore{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(context.Background(), "query", 2); err == nil {
		t.Error("expected error from failing embedder")
	}
}
