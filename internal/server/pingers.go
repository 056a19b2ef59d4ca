package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/s7ern/kbrag-go/internal/store"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// RunStorePinger probes the SQLite run store backing chat continuity.
type RunStorePinger struct {
	// store is the run store to probe.
	store *store.SQLiteStore
}

// NewRunStorePinger constructs a RunStorePinger for the given store.
func NewRunStorePinger(s *store.SQLiteStore) *RunStorePinger {
	return &RunStorePinger{store: s}
}

// Name returns the dependency label used in readiness responses.
func (p *RunStorePinger) Name() string { return "runs" }

// Ping checks the SQLite connection.
func (p *RunStorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("run store unreachable: %w", err)
	}
	return nil
}
