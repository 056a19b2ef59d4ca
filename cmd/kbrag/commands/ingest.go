package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/s7ern/kbrag-go/internal/embedder"
	"github.com/s7ern/kbrag-go/internal/ingest"
	"github.com/s7ern/kbrag-go/internal/kb"
	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/rag"
)

// NewIngestCmd constructs the `kbrag ingest` command, which loads files and
// URLs into a knowledge base without going through the HTTP API.
func NewIngestCmd() *cobra.Command {
	var kbName string
	var files []string
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest files or URLs into a knowledge base",
		Long: `Chunk, embed, and store documents in a knowledge base.

Each knowledge base is backed by its own Qdrant collection. With the local
embedding model (nomic-embed-text) all knowledge bases share a single
collection regardless of the name given here.

Examples:
  kbrag ingest --kb crypto --file whitepaper.pdf
  kbrag ingest --kb news --url https://example.com/article --file slides.docx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: at least one --file or --url is required")
			}

			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			embeddingModel := getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-large")
			emb, err := embedder.NewForModel(embeddingModel)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			collection := kb.Resolve(kbName, embeddingModel)
			qcfg := qdrantConfigFromEnv()
			qcfg.Collection = collection
			qcfg.VectorSize = uint64(embedder.Dimensions(embedder.ResolveKind(embeddingModel)))

			vs, err := rag.NewQdrantStore(ctx, &qcfg)
			if err != nil {
				return fmt.Errorf("ingest: failed to connect to qdrant: %w", err)
			}
			defer func() { _ = vs.Close() }()

			ingestor, err := ingest.NewIngestor(emb, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			total := 0
			for _, path := range files {
				n, err := ingestor.IngestFile(ctx, vs, path)
				if err != nil {
					return fmt.Errorf("ingest: file %s: %w", path, err)
				}
				log.Info("file ingested",
					slog.String("path", path),
					slog.String("collection", collection),
					slog.Int("chunks", n))
				total += n
			}
			for _, u := range urls {
				n, err := ingestor.IngestURL(ctx, vs, u)
				if err != nil {
					return fmt.Errorf("ingest: url %s: %w", u, err)
				}
				log.Info("url ingested",
					slog.String("url", u),
					slog.String("collection", collection),
					slog.Int("chunks", n))
				total += n
			}

			fmt.Fprintf(os.Stdout, "Ingested %d chunks into knowledge base %q (collection %s)\n",
				total, kbName, collection)
			return nil
		},
	}

	cmd.Flags().StringVar(&kbName, "kb", "", "Knowledge base name (default: crypto)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "File to ingest (repeatable)")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "URL to ingest (repeatable)")

	return cmd
}
