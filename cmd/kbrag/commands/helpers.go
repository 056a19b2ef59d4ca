package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/s7ern/kbrag-go/internal/rag"
	"github.com/s7ern/kbrag-go/internal/server"
	"github.com/s7ern/kbrag-go/internal/store"
)

// getEnvOrDefault returns the env value for key, or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env value for key parsed as int, or fallback when
// unset or unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// qdrantConfigFromEnv builds the shared Qdrant connection settings.
// The collection is resolved per knowledge base, not here.
func qdrantConfigFromEnv() rag.QdrantConfig {
	return rag.QdrantConfig{
		Host:   getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:   getEnvInt("QDRANT_PORT", 6334),
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	}
}

// buildPingers assembles the readiness probes for GET /ready: the Qdrant
// vector store and the SQLite run store. Probe construction failures are
// logged and skipped so a missing optional dependency does not block startup.
func buildPingers(qcfg rag.QdrantConfig, runs *store.SQLiteStore, log *slog.Logger) []server.Pinger {
	var pingers []server.Pinger

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   qcfg.Host,
		Port:   qcfg.Port,
		APIKey: qcfg.APIKey,
		UseTLS: qcfg.UseTLS,
	})
	if err != nil {
		log.Warn("readiness: qdrant probe unavailable", slog.Any("error", err))
	} else {
		pingers = append(pingers, server.NewQdrantPinger(client))
	}

	if runs != nil {
		pingers = append(pingers, server.NewRunStorePinger(runs))
	}

	return pingers
}
