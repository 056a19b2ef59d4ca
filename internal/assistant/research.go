package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/s7ern/kbrag-go/internal/search"
)

// ResearchAssistant turns a topic and web search results into a structured
// markdown report.
type ResearchAssistant struct {
	chatModel ChatStreamer
	searcher  search.Searcher
	now       func() time.Time
}

// ResearchConfig holds the dependencies for a ResearchAssistant.
type ResearchConfig struct {
	// ChatModel is the LLM backend used to write the report.
	ChatModel ChatStreamer
	// Searcher runs the web search that grounds the report.
	Searcher search.Searcher
	// Now returns the current time for the system prompt timestamp.
	// Defaults to time.Now.
	Now func() time.Time
}

// NewResearch constructs a ResearchAssistant from the provided config.
func NewResearch(cfg *ResearchConfig) (*ResearchAssistant, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("assistant: ChatModel must not be nil")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("assistant: Searcher must not be nil")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ResearchAssistant{
		chatModel: cfg.ChatModel,
		searcher:  cfg.Searcher,
		now:       now,
	}, nil
}

// ErrNoSearchResults is returned when the web search comes back empty; a
// report written from nothing would be pure hallucination.
var ErrNoSearchResults = errors.New("assistant: no search results for topic")

// Generate searches the web for the topic and returns the full report as
// markdown. The model stream is drained internally.
func (r *ResearchAssistant) Generate(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", fmt.Errorf("assistant: topic must not be empty")
	}

	results, err := r.searcher.Search(ctx, topic, 0)
	if err != nil {
		return "", fmt.Errorf("assistant: web search failed: %w", err)
	}
	if len(results) == 0 {
		return "", ErrNoSearchResults
	}

	messages := []*schema.Message{
		schema.SystemMessage(researchSystemPrompt(r.now())),
		schema.UserMessage(buildResearchPrompt(topic, results)),
	}

	sr, err := r.chatModel.Stream(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("assistant: stream failed: %w", err)
	}
	defer sr.Close()

	var report strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("assistant: stream receive error: %w", err)
		}
		if msg != nil && msg.Content != "" {
			report.WriteString(msg.Content)
		}
	}
	return report.String(), nil
}

// buildResearchPrompt formats the topic and search results into the user
// message the report is written from.
func buildResearchPrompt(topic string, results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\nSearch results:\n<search_results>\n", topic)
	for i, res := range results {
		fmt.Fprintf(&sb, "### Result %d: %s\nURL: %s\n%s\n\n", i+1, res.Title, res.URL, res.Content)
	}
	sb.WriteString("</search_results>")
	return sb.String()
}
