package kb

import "testing"

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requested      string
		embeddingModel string
		want           string
	}{
		{
			name:           "local embeddings pin the dedicated collection",
			requested:      "research",
			embeddingModel: "nomic-embed-text",
			want:           "groq_rag_documents_ollama",
		},
		{
			name:           "local embeddings ignore empty name too",
			requested:      "",
			embeddingModel: "nomic-embed-text",
			want:           "groq_rag_documents_ollama",
		},
		{
			name:           "hosted embeddings use the requested name",
			requested:      "research",
			embeddingModel: "text-embedding-3-large",
			want:           "research",
		},
		{
			name:           "hosted embeddings default when no name given",
			requested:      "",
			embeddingModel: "text-embedding-3-large",
			want:           "crypto",
		},
		{
			name:           "unknown embedding model behaves as hosted",
			requested:      "notes",
			embeddingModel: "some-future-model",
			want:           "notes",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tc.requested, tc.embeddingModel); got != tc.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tc.requested, tc.embeddingModel, got, tc.want)
			}
		})
	}
}

// Resolve must be stable: the same inputs always map to the same collection,
// and two different hosted names never collide.
func TestResolve_Stability(t *testing.T) {
	t.Parallel()

	a := Resolve("alpha", "text-embedding-3-large")
	b := Resolve("beta", "text-embedding-3-large")
	if a == b {
		t.Errorf("distinct hosted names resolved to the same collection %q", a)
	}
	for i := 0; i < 10; i++ {
		if got := Resolve("alpha", "text-embedding-3-large"); got != a {
			t.Fatalf("Resolve not stable: got %q then %q", a, got)
		}
	}
}
