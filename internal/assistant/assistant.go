// Package assistant implements the two LLM personas behind the HTTP API: a
// retrieval-augmented chat assistant for crypto and finance questions, and a
// report writer that turns web search results into a structured markdown
// report. Both stream their output from an Eino chat model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/s7ern/kbrag-go/internal/budget"
	"github.com/s7ern/kbrag-go/internal/logging"
	"github.com/s7ern/kbrag-go/internal/rag"
	"github.com/s7ern/kbrag-go/internal/store"
)

// ChatStreamer is the subset of the Eino chat model interface the assistants
// use. model.ToolCallingChatModel satisfies it.
type ChatStreamer interface {
	Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error)
}

const (
	// defaultReferenceTopK is the number of knowledge-base documents injected
	// per chat query.
	defaultReferenceTopK = 2
	// defaultHistoryDepth is the number of prior messages injected per query.
	defaultHistoryDepth = 4
	// streamBufferSize bounds the token channel so a slow reader applies
	// backpressure to the model stream instead of growing memory.
	streamBufferSize = 16
)

// Config holds the dependencies required to construct a RAGAssistant.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel ChatStreamer

	// Retriever fetches knowledge-base context for each query.
	// May be nil if no knowledge base is configured.
	Retriever rag.Retriever

	// Runs is the optional run store used to persist and replay prior turns.
	// If nil, each query is stateless.
	Runs store.RunStore

	// RunID identifies the conversation thread messages are read from and
	// appended to. Required when Runs is set.
	RunID string

	// ReferenceTopK controls how many knowledge-base documents are injected
	// per query. Defaults to 2 if zero.
	ReferenceTopK int

	// HistoryDepth is the number of prior messages to inject per query.
	// Defaults to 4 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context. History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// Now returns the current time for the system prompt timestamp.
	// Defaults to time.Now.
	Now func() time.Time
}

// RAGAssistant answers chat questions with knowledge-base context and
// persisted multi-turn history.
type RAGAssistant struct {
	chatModel        ChatStreamer
	retriever        rag.Retriever
	runs             store.RunStore
	runID            string
	referenceTopK    int
	historyDepth     int
	maxContextTokens int
	now              func() time.Time
}

// New constructs a RAGAssistant from the provided Config.
func New(cfg *Config) (*RAGAssistant, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("assistant: ChatModel must not be nil")
	}
	if cfg.Runs != nil && cfg.RunID == "" {
		return nil, fmt.Errorf("assistant: RunID is required when a run store is set")
	}

	topK := cfg.ReferenceTopK
	if topK <= 0 {
		topK = defaultReferenceTopK
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = defaultHistoryDepth
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RAGAssistant{
		chatModel:        cfg.ChatModel,
		retriever:        cfg.Retriever,
		runs:             cfg.Runs,
		runID:            cfg.RunID,
		referenceTopK:    topK,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
		now:              now,
	}, nil
}

// RunStream sends a user message to the assistant and returns a channel of
// response chunks. The channel is closed when the model stream ends or the
// context is cancelled. After a successful stream, both the user message and
// the full assistant response are persisted to the run store.
func (a *RAGAssistant) RunStream(ctx context.Context, userMessage string) (<-chan string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("assistant: user message must not be empty")
	}

	messages, err := a.buildMessages(ctx, userMessage)
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to build messages: %w", err)
	}

	sr, err := a.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("assistant: stream failed: %w", err)
	}

	out := make(chan string, streamBufferSize)
	go func() {
		defer close(out)
		defer sr.Close()

		var msgBuf strings.Builder
		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				logging.FromContext(ctx).Error("assistant: stream receive error", slog.Any("error", err))
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			msgBuf.WriteString(msg.Content)
			select {
			case out <- msg.Content:
			case <-ctx.Done():
				return
			}
		}

		a.persistTurn(ctx, userMessage, msgBuf.String())
	}()

	return out, nil
}

// persistTurn appends the user and assistant messages to the run store.
// Persistence failures are non-fatal; the response has already streamed.
func (a *RAGAssistant) persistTurn(ctx context.Context, userMessage, response string) {
	if a.runs == nil {
		return
	}
	if err := a.runs.Append(ctx, a.runID, store.RoleUser, userMessage); err != nil {
		logging.FromContext(ctx).Warn("runs: failed to persist user message", slog.Any("error", err))
	}
	if err := a.runs.Append(ctx, a.runID, store.RoleAssistant, response); err != nil {
		logging.FromContext(ctx).Warn("runs: failed to persist assistant message", slog.Any("error", err))
	}
}

// buildMessages constructs the message slice for the model: system prompt,
// trimmed history, knowledge-base references, then the user message.
func (a *RAGAssistant) buildMessages(ctx context.Context, userMessage string) ([]*schema.Message, error) {
	messages := []*schema.Message{
		schema.SystemMessage(ragSystemPrompt(a.now())),
	}

	// Replay recent turns from the run store so the LLM has multi-turn
	// context. History is trimmed oldest-first to stay within the budget.
	var historyMsgs []*schema.Message
	if a.runs != nil {
		prior, err := a.runs.Recent(ctx, a.runID, a.historyDepth)
		if err != nil {
			logging.FromContext(ctx).Warn("runs: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	if a.retriever != nil {
		docs, err := a.retriever.Retrieve(ctx, userMessage, a.referenceTopK)
		if err != nil {
			// Retrieval failure is non-fatal; answer from model knowledge.
			logging.FromContext(ctx).Warn("retrieval failed, continuing without references", slog.Any("error", err))
		} else if len(docs) > 0 {
			messages = append(messages, schema.SystemMessage(buildReferences(docs)))
		}
	}

	fixed := append(messages, schema.UserMessage(userMessage)) //nolint:gocritic // intentional copy

	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	// messages currently holds: [system, ...references]
	// We want: [system, ...history, ...references, user]
	result := make([]*schema.Message, 0, len(messages)+len(historyMsgs)+1)
	result = append(result, messages[0])
	result = append(result, historyMsgs...)
	result = append(result, messages[1:]...)
	result = append(result, schema.UserMessage(userMessage))
	return result, nil
}

// buildReferences formats retrieved documents into a system message giving
// the model knowledge-base context for the current question.
func buildReferences(docs []rag.Document) string {
	var sb strings.Builder
	sb.WriteString("Use the following information from the knowledge base if it helps:\n<references>\n")
	for i, doc := range docs {
		fmt.Fprintf(&sb, "### Source %d: %s\n%s\n\n", i+1, doc.Source, doc.Content)
	}
	sb.WriteString("</references>")
	return sb.String()
}
