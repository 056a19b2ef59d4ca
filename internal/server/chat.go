package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/s7ern/kbrag-go/internal/logging"
)

// handleChat handles POST /chat. The response is plain text streamed chunk by
// chunk as the model produces it; the connection stays open for the duration
// of generation. A client disconnect cancels the request context, which stops
// the producer goroutine.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		writeError(w, http.StatusBadRequest, "user_prompt is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	start := time.Now()
	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()

	ch, err := s.svc.ChatStream(ctx, req.KBName, req.UserPrompt)
	if err != nil {
		s.observeChat("error", start)
		logging.FromContext(r.Context()).Error("chat failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for chunk := range ch {
		if _, err := fmt.Fprint(w, chunk); err != nil {
			// Client went away; the deferred cancel stops the producer.
			s.observeChat("error", start)
			return
		}
		flusher.Flush()
	}

	outcome := "ok"
	if ctx.Err() != nil {
		outcome = "timeout"
	}
	s.observeChat(outcome, start)
}

// observeChat records the outcome and duration of one /chat request.
func (s *Server) observeChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
