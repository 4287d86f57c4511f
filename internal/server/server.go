package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"repo-pulse/internal/history"
	"repo-pulse/internal/llm"
	"repo-pulse/internal/tracker"
)

// Reports provides the metrics window the analysis runs on.
type Reports interface {
	WeeklyReport(ctx context.Context) (*tracker.WeeklyReport, error)
}

type Analyst interface {
	Generate(ctx context.Context, data history.History, question string) (string, error)
	Stream(ctx context.Context, data history.History, question string, onToken llm.TokenFunc) (string, error)
	Deliver(ctx context.Context, text string) error
}

type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// MCP serves the tool server at /mcp when set.
	MCP    http.Handler
	Logger *zap.Logger
}

type Server struct {
	reports Reports
	analyst Analyst
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func New(reports Reports, analyst Analyst, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{reports: reports, analyst: analyst, opts: opts, logger: logger, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/api/analysis/stream", s.handleStream)
	r.Post("/webhook", s.handleWebhook)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}
	if s.opts.MCP != nil {
		r.Handle("/mcp", s.opts.MCP)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

type webhookRequest struct {
	Question string `json:"question"`
}

// handleWebhook runs an analysis for the posted question and delivers it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "invalid JSON body"})
			return
		}
	}
	ctx := r.Context()
	text, err := s.analyze(ctx, req.Question)
	if err == nil {
		err = s.analyst.Deliver(ctx, text)
	}
	if err != nil {
		s.logger.Error("webhook analysis failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": text})
}

func (s *Server) analyze(ctx context.Context, question string) (string, error) {
	report, err := s.reports.WeeklyReport(ctx)
	if err != nil {
		return "", err
	}
	return s.analyst.Generate(ctx, report.Data, question)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
