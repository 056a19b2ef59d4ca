package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/s7ern/kbrag-go/internal/app"
	"github.com/s7ern/kbrag-go/internal/embedder"
	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/provider"
	"github.com/s7ern/kbrag-go/internal/search"
	"github.com/s7ern/kbrag-go/internal/server"
	"github.com/s7ern/kbrag-go/internal/store"
	"github.com/s7ern/kbrag-go/internal/tracing"
)

// NewServeCmd constructs the `kbrag serve` command, which starts the HTTP
// API for ingestion, chat, and report generation.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var uploadDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kbrag HTTP API",
		Long: `Start the kbrag HTTP server.

The server exposes file/URL ingestion into named knowledge bases, streamed
retrieval-augmented chat with persistent conversation history, knowledge-base
listing and clearing, and web-search-grounded report generation.

Examples:
  kbrag serve
  kbrag serve --port 9001
  MODEL_PROVIDER=ollama kbrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Langfuse tracing is opt-in and becomes a no-op without keys.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			embeddingModel := getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-large")
			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewForModel(embeddingModel)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("model", embeddingModel))

			// Open the run store backing chat continuity. KBRAG_RUNS_DB
			// overrides the default path (~/.kbrag/runs.db).
			dbPath := os.Getenv("KBRAG_RUNS_DB")
			if dbPath == "" {
				dbPath, err = store.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("serve: could not resolve run store path: %w", err)
				}
			}
			runs, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("serve: failed to open run store: %w", err)
			}
			defer func() { _ = runs.Close() }()
			log.Info("run store opened", slog.String("path", dbPath))

			// Web search is optional; without a Tavily key only /getreport
			// is unavailable.
			var searcher search.Searcher
			if tavily, tErr := search.NewTavilyFromEnv(); tErr != nil {
				log.Warn("report generation disabled", slog.Any("error", tErr))
			} else {
				searcher = tavily
			}

			if uploadDir == "" {
				uploadDir = getEnvOrDefault("KBRAG_UPLOAD_DIR", app.DefaultUploadDir)
			}

			qcfg := qdrantConfigFromEnv()
			application, err := app.New(&app.Config{
				ChatModel:      chatModel,
				Embedder:       emb,
				EmbeddingModel: embeddingModel,
				Runs:           runs,
				Searcher:       searcher,
				Qdrant:         qcfg,
				UploadDir:      uploadDir,
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = application.Close() }()

			srv, err := server.New(application, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(qcfg, runs, log),
				APIKey:  os.Getenv("KBRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 9000, "TCP port to listen on")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "", "Directory for uploaded files (default: $KBRAG_UPLOAD_DIR or ./uploads)")

	return cmd
}
