package embedder

import (
	"fmt"

	"github.com/s7ern/kbrag-go/internal/rag"
)

// NewForModel constructs a rag.Embedder for the given embedding model name.
// The model name alone selects the backend (see ResolveKind); an empty name
// falls back to the hosted default model.
//
// Environment variables:
//
//	Local (Ollama):  EMBEDDING_ENDPOINT or OLLAMA_HOST (default: http://localhost:11434)
//	Hosted (OpenAI): EMBEDDING_API_KEY or OPENAI_API_KEY (required),
//	                 EMBEDDING_ENDPOINT (default: https://api.openai.com/v1)
//	Both:            EMBEDDING_DIMENSIONS overrides the vector size
//	                 (local: 768, hosted: 1536)
func NewForModel(model string) (rag.Embedder, error) {
	if model == "" {
		model = defaultHostedModel
	}

	switch ResolveKind(model) {
	case KindLocal:
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: model,
		}), nil

	default:
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: hosted model %q requires OPENAI_API_KEY or EMBEDDING_API_KEY", model)
		}
		baseURL := getEnv("EMBEDDING_ENDPOINT")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: Dimensions(KindHosted),
		}), nil
	}
}

// NewFromEnv constructs a rag.Embedder from the EMBEDDING_MODEL environment
// variable, falling back to the hosted default model when unset.
func NewFromEnv() (rag.Embedder, error) {
	return NewForModel(getEnv("EMBEDDING_MODEL"))
}
