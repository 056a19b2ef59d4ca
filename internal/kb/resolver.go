// Package kb holds knowledge-base naming and bookkeeping: the mapping from a
// requested knowledge-base name to the vector store collection backing it, and
// an in-memory ledger of what each knowledge base has ingested.
package kb

import "github.com/s7ern/kbrag-go/internal/embedder"

const (
	// DefaultName is the knowledge base used when a request carries no name.
	DefaultName = "crypto"

	// localCollection is the single collection backing every knowledge base
	// when embeddings are produced locally. Local vectors are 768-wide while
	// hosted ones are 1536-wide; pinning local mode to one dedicated
	// collection keeps mixed-dimension points out of the named collections.
	localCollection = "groq_rag_documents_ollama"
)

// Resolve maps a requested knowledge-base name and the active embedding model
// to the vector store collection to operate on.
//
// When the embedding model is served locally, every request resolves to the
// dedicated local collection regardless of the requested name. Otherwise the
// requested name is used as-is, falling back to DefaultName when empty.
func Resolve(requested, embeddingModel string) string {
	if embedder.ResolveKind(embeddingModel) == embedder.KindLocal {
		return localCollection
	}
	if requested == "" {
		return DefaultName
	}
	return requested
}
