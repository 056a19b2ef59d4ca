package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/s7ern/kbrag-go/internal/rag"
	"github.com/s7ern/kbrag-go/internal/store"
)

// fakeChat returns a canned stream of chunks and records the input messages.
type fakeChat struct {
	mu     sync.Mutex
	chunks []string
	err    error
	input  []*schema.Message
}

func (f *fakeChat) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.input = input
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sr, sw := schema.Pipe[*schema.Message](len(f.chunks))
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
	}()
	return sr, nil
}

func (f *fakeChat) capturedInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// fakeRetriever returns canned documents or a canned error.
type fakeRetriever struct {
	docs []rag.Document
	err  error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) ([]rag.Document, error) {
	return f.docs, f.err
}

// memRuns is an in-memory RunStore.
type memRuns struct {
	mu       sync.Mutex
	messages map[string][]store.Message
}

func newMemRuns() *memRuns {
	return &memRuns{messages: make(map[string][]store.Message)}
}

func (m *memRuns) CreateRun(_ context.Context, _ string) (string, error) { return "run-1", nil }

func (m *memRuns) RunIDs(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (m *memRuns) Append(_ context.Context, runID string, role store.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[runID] = append(m.messages[runID], store.Message{Role: role, Content: content, CreatedAt: time.Now()})
	return nil
}

func (m *memRuns) Recent(_ context.Context, runID string, n int) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[runID]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memRuns) Close() error { return nil }

func drain(t *testing.T, ch <-chan string) string {
	t.Helper()
	var sb strings.Builder
	for chunk := range ch {
		sb.WriteString(chunk)
	}
	return sb.String()
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{}); err == nil {
		t.Fatal("expected error for nil ChatModel")
	}
	if _, err := New(&Config{ChatModel: &fakeChat{}, Runs: newMemRuns()}); err == nil {
		t.Fatal("expected error for run store without RunID")
	}
	if _, err := New(&Config{ChatModel: &fakeChat{}}); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestRunStreamStreamsAndPersists(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{chunks: []string{"Bitcoin ", "is ", "a cryptocurrency."}}
	runs := newMemRuns()
	a, err := New(&Config{ChatModel: chat, Runs: runs, RunID: "run-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch, err := a.RunStream(context.Background(), "What is Bitcoin?")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	got := drain(t, ch)
	if got != "Bitcoin is a cryptocurrency." {
		t.Fatalf("streamed %q", got)
	}

	// The turn is persisted after the stream completes.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, _ := runs.Recent(context.Background(), "run-1", 10)
		if len(msgs) == 2 {
			if msgs[0].Role != store.RoleUser || msgs[0].Content != "What is Bitcoin?" {
				t.Fatalf("first persisted message = %+v", msgs[0])
			}
			if msgs[1].Role != store.RoleAssistant || msgs[1].Content != "Bitcoin is a cryptocurrency." {
				t.Fatalf("second persisted message = %+v", msgs[1])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("turn not persisted, have %d messages", len(msgs))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunStreamEmptyMessage(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{ChatModel: &fakeChat{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.RunStream(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestRunStreamMessageOrder(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{chunks: []string{"ok"}}
	runs := newMemRuns()
	if err := runs.Append(context.Background(), "run-1", store.RoleUser, "earlier question"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := runs.Append(context.Background(), "run-1", store.RoleAssistant, "earlier answer"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	retriever := &fakeRetriever{docs: []rag.Document{
		{Source: "whitepaper.pdf", Content: "Proof of work secures the chain."},
	}}
	a, err := New(&Config{ChatModel: chat, Retriever: retriever, Runs: runs, RunID: "run-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch, err := a.RunStream(context.Background(), "How is the chain secured?")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	drain(t, ch)

	input := chat.capturedInput()
	if len(input) != 5 {
		t.Fatalf("got %d messages, want 5", len(input))
	}
	if input[0].Role != schema.System || !strings.Contains(input[0].Content, "Finance and Crypto") {
		t.Fatalf("first message is not the persona prompt: %+v", input[0])
	}
	if input[1].Role != schema.User || input[1].Content != "earlier question" {
		t.Fatalf("history user message out of place: %+v", input[1])
	}
	if input[2].Role != schema.Assistant || input[2].Content != "earlier answer" {
		t.Fatalf("history assistant message out of place: %+v", input[2])
	}
	if input[3].Role != schema.System || !strings.Contains(input[3].Content, "whitepaper.pdf") {
		t.Fatalf("references message out of place: %+v", input[3])
	}
	if input[4].Role != schema.User || input[4].Content != "How is the chain secured?" {
		t.Fatalf("user message out of place: %+v", input[4])
	}
}

func TestRunStreamRetrieverErrorNonFatal(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{chunks: []string{"answered anyway"}}
	retriever := &fakeRetriever{err: errors.New("qdrant down")}
	a, err := New(&Config{ChatModel: chat, Retriever: retriever})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch, err := a.RunStream(context.Background(), "What is a stablecoin?")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if got := drain(t, ch); got != "answered anyway" {
		t.Fatalf("streamed %q", got)
	}
	for _, msg := range chat.capturedInput() {
		if strings.Contains(msg.Content, "<references>") {
			t.Fatal("references injected despite retriever error")
		}
	}
}

func TestRunStreamModelError(t *testing.T) {
	t.Parallel()

	a, err := New(&Config{ChatModel: &fakeChat{err: errors.New("rate limited")}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.RunStream(context.Background(), "hello"); err == nil {
		t.Fatal("expected stream error")
	}
}
