// Package embedder provides implementations of the rag.Embedder interface for
// converting text into dense vector embeddings. The embedding model name
// selects the backend: nomic-embed-text runs against a local Ollama host,
// every other model name is sent to the OpenAI embeddings API. Both backends
// are plain HTTP — no additional SDK dependencies are required.
package embedder

import (
	"os"
	"strconv"
)

// Kind identifies where an embedding model is served from.
type Kind string

const (
	// KindLocal is an embedding model served by a local Ollama instance.
	KindLocal Kind = "local"
	// KindHosted is an embedding model served by the OpenAI API.
	KindHosted Kind = "hosted"
)

const (
	// localModel is the only model name routed to Ollama. Everything else,
	// recognised or not, goes to the hosted backend.
	localModel = "nomic-embed-text"

	// defaultHostedModel is the embedding model used when none is configured.
	defaultHostedModel = "text-embedding-3-large"

	// localDimensions is the output dimension of nomic-embed-text.
	localDimensions = 768
	// hostedDimensions is the output dimension requested from the OpenAI
	// embeddings API. text-embedding-3-large supports shortening to 1536.
	hostedDimensions = 1536
)

// ResolveKind maps an embedding model name to its serving backend.
// An empty name resolves to the hosted default.
func ResolveKind(model string) Kind {
	if model == localModel {
		return KindLocal
	}
	return KindHosted
}

// Dimensions returns the embedding vector size for the given kind.
// EMBEDDING_DIMENSIONS always takes precedence when set. Callers that
// pre-create vector store collections must use this rather than hardcoding
// a size or upserts will fail with a dimension mismatch.
func Dimensions(kind Kind) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	if kind == KindLocal {
		return localDimensions
	}
	return hostedDimensions
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
