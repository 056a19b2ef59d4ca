// Command kbrag is the entry point for the knowledge-base RAG service.
// It provides a CLI interface (via Cobra) for running the HTTP server,
// ingesting documents from the command line, and generating reports.
package main

import (
	"fmt"
	"os"

	"github.com/s7ern/kbrag-go/cmd/kbrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
