package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s7ern/kbrag-go/internal/assistant"
	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/provider"
	"github.com/s7ern/kbrag-go/internal/search"
)

// NewReportCmd constructs the `kbrag report` command, which generates a
// web-search-grounded report on a topic and prints it to stdout.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <topic>",
		Short: "Generate a research report on a topic",
		Long: `Search the web for a topic and write a structured markdown report
from the results. Requires TAVILY_API_KEY.

Examples:
  kbrag report "bitcoin ETF inflows"
  kbrag report "EU MiCA regulation impact on stablecoins"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")

			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			searcher, err := search.NewTavilyFromEnv()
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("report: failed to initialise model provider: %w", err)
			}

			research, err := assistant.NewResearch(&assistant.ResearchConfig{
				ChatModel: chatModel,
				Searcher:  searcher,
			})
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			out, err := research.Generate(ctx, topic)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}

	return cmd
}
