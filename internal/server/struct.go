package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0).
	Host string
	// Port is the TCP port to listen on (default: 9000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds a single /chat generation stream.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the knowledge-base routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's metric registrations. Defaults to
	// a fresh registry so tests stay hermetic.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Must gather from MetricsRegistry.
	MetricsGatherer prometheus.Gatherer
}

// knowledgeService is the interface the handlers call for every
// knowledge-base operation. *app.App satisfies it; tests inject a fake.
type knowledgeService interface {
	// ChatStream streams an answer for userPrompt against the named
	// knowledge base.
	ChatStream(ctx context.Context, kbName, userPrompt string) (<-chan string, error)

	// IngestUpload saves and ingests one uploaded file.
	IngestUpload(ctx context.Context, kbName, filename string, src io.Reader) (int, error)

	// IngestURL crawls and ingests a website.
	IngestURL(ctx context.Context, kbName, rawURL string) (int, error)

	// ListFiles lists the uploaded file names for a knowledge base.
	ListFiles(kbName string) ([]string, error)

	// Clear empties a knowledge base and returns the removed upload path.
	Clear(ctx context.Context, kbName string) (string, error)

	// Report generates a research report for the topic.
	Report(ctx context.Context, topic string) (string, error)
}

// Server is the HTTP server exposing the knowledge-base API.
type Server struct {
	// svc handles all knowledge-base operations.
	svc knowledgeService
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /chat.
type chatRequest struct {
	// UserPrompt is the user's question.
	UserPrompt string `json:"user_prompt"`
	// KBName selects the knowledge base; empty uses the default.
	KBName string `json:"kb_name"`
}

// uploadResponse is the JSON response for POST /receive-file.
type uploadResponse struct {
	Message string `json:"message"`
	KBName  string `json:"kb_name"`
}

// listKBRequest is the JSON body for GET /listKB.
type listKBRequest struct {
	KBName string `json:"kb_name"`
}

// listKBResponse is the JSON response for GET /listKB.
type listKBResponse struct {
	KBList  []string `json:"kb_list"`
	KBName  string   `json:"kb_name"`
	Message string   `json:"message,omitempty"`
}

// clearRequest is the JSON body for POST /clear.
type clearRequest struct {
	KBName string `json:"kb_name"`
}

// clearResponse is the JSON response for POST /clear.
type clearResponse struct {
	Message string `json:"message"`
	KBName  string `json:"kb_name"`
	KBPath  string `json:"kb_path"`
}

// reportRequest is the JSON body for POST /getreport.
type reportRequest struct {
	Topic string `json:"topic"`
}

// reportResponse is the JSON response for POST /getreport.
type reportResponse struct {
	Report string `json:"report"`
}

// errorResponse is the JSON body for client and server errors.
type errorResponse struct {
	Error string `json:"error"`
}
