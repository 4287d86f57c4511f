package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// sseWriter frames named server-sent events and flushes each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) done() {
	_, _ = fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

// handleStream streams an analysis as server-sent events:
// connection, content per token, then done or error, then [DONE].
// The finished text is delivered after done; a delivery failure is only logged.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	sse := &sseWriter{w: w, flusher: flusher}

	question := r.URL.Query().Get("question")
	if err := sse.event("connection", map[string]string{"status": "connected"}); err != nil {
		sse.done()
		return
	}

	fail := func(err error) {
		s.logger.Warn("analysis stream failed", zap.Error(err))
		_ = sse.event("error", map[string]string{"error": err.Error()})
		sse.done()
	}

	report, err := s.reports.WeeklyReport(ctx)
	if err != nil {
		fail(err)
		return
	}

	var acc strings.Builder
	text, err := s.analyst.Stream(ctx, report.Data, question, func(token string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		acc.WriteString(token)
		return sse.event("content", map[string]string{"token": token, "accumulated": acc.String()})
	})
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("analysis stream client disconnected")
			sse.done()
			return
		}
		fail(err)
		return
	}
	_ = sse.event("done", map[string]string{"content": text})
	sse.done()

	// The client may hang up once the stream is closed.
	if err := s.analyst.Deliver(context.WithoutCancel(ctx), text); err != nil {
		s.logger.Error("analysis delivery failed", zap.Error(err))
	}
}
