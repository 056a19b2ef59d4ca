// Package commands defines all Cobra CLI commands for the kbrag binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/s7ern/kbrag-go/internal/audit"
	"github.com/s7ern/kbrag-go/internal/config"
	"github.com/s7ern/kbrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbrag",
		Short: "kbrag is a knowledge-base RAG service for crypto and finance",
		Long: `kbrag is an HTTP service that answers crypto and finance questions over
your own documents.

It ingests files and websites into named knowledge bases backed by a Qdrant
vector store, streams retrieval-augmented chat answers with persistent
conversation history, and writes web-search-grounded research reports.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.kbrag/config.yaml).
See 'kbrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env first so both YAML layering and direct env reads
			// see the same values. Missing file is not an error.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kbrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewReportCmd(),
		NewVersionCmd(),
	)

	return root
}
