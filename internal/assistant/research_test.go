package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/s7ern/kbrag-go/internal/search"
)

// fakeSearcher returns canned results or a canned error.
type fakeSearcher struct {
	results []search.Result
	err     error
	query   string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	f.query = query
	return f.results, f.err
}

func TestNewResearchValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewResearch(&ResearchConfig{Searcher: &fakeSearcher{}}); err == nil {
		t.Fatal("expected error for nil ChatModel")
	}
	if _, err := NewResearch(&ResearchConfig{ChatModel: &fakeChat{}}); err == nil {
		t.Fatal("expected error for nil Searcher")
	}
}

func TestGenerateReport(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{chunks: []string{"## Title\n", "report body"}}
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "ETF approval", URL: "https://example.com/etf", Content: "Spot ETFs were approved."},
	}}
	r, err := NewResearch(&ResearchConfig{ChatModel: chat, Searcher: searcher})
	if err != nil {
		t.Fatalf("NewResearch: %v", err)
	}

	report, err := r.Generate(context.Background(), "bitcoin ETFs")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report != "## Title\nreport body" {
		t.Fatalf("report = %q", report)
	}
	if searcher.query != "bitcoin ETFs" {
		t.Fatalf("searched %q", searcher.query)
	}

	input := chat.capturedInput()
	if len(input) != 2 {
		t.Fatalf("got %d messages, want 2", len(input))
	}
	if !strings.Contains(input[0].Content, "Senior NYT Editor") || !strings.Contains(input[0].Content, "<report_format>") {
		t.Fatal("system prompt missing persona or report format")
	}
	if !strings.Contains(input[1].Content, "Topic: bitcoin ETFs") ||
		!strings.Contains(input[1].Content, "ETF approval") ||
		!strings.Contains(input[1].Content, "https://example.com/etf") {
		t.Fatalf("user prompt missing topic or search results: %q", input[1].Content)
	}
}

func TestGenerateNoResults(t *testing.T) {
	t.Parallel()

	r, err := NewResearch(&ResearchConfig{ChatModel: &fakeChat{}, Searcher: &fakeSearcher{}})
	if err != nil {
		t.Fatalf("NewResearch: %v", err)
	}
	if _, err := r.Generate(context.Background(), "obscure topic"); !errors.Is(err, ErrNoSearchResults) {
		t.Fatalf("err = %v, want ErrNoSearchResults", err)
	}
}

func TestGenerateSearchError(t *testing.T) {
	t.Parallel()

	r, err := NewResearch(&ResearchConfig{ChatModel: &fakeChat{}, Searcher: &fakeSearcher{err: errors.New("tavily 401")}})
	if err != nil {
		t.Fatalf("NewResearch: %v", err)
	}
	if _, err := r.Generate(context.Background(), "anything"); err == nil || !strings.Contains(err.Error(), "tavily 401") {
		t.Fatalf("err = %v, want wrapped search error", err)
	}
}

func TestGenerateEmptyTopic(t *testing.T) {
	t.Parallel()

	r, err := NewResearch(&ResearchConfig{ChatModel: &fakeChat{}, Searcher: &fakeSearcher{}})
	if err != nil {
		t.Fatalf("NewResearch: %v", err)
	}
	if _, err := r.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty topic")
	}
}
