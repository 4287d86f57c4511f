package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"repo-pulse/internal/history"
	"repo-pulse/internal/notify"
	"repo-pulse/internal/tracker"
)

const (
	ServerName    = "repo-pulse"
	ServerVersion = "1.0.0"
)

// Jobs is the part of the tracker the tools dispatch to.
type Jobs interface {
	History(ctx context.Context) history.History
	RunDaily(ctx context.Context) (*tracker.DailyReport, error)
	RunWeekly(ctx context.Context) (*tracker.WeeklyReport, error)
	WeeklyReport(ctx context.Context) (*tracker.WeeklyReport, error)
	Send(ctx context.Context, msg notify.Message) error
}

type Narrator interface {
	Generate(ctx context.Context, data history.History, question string) (string, error)
}

type RepoDataParams struct {
	Repo string `json:"repo,omitempty" mcp:"repository in owner/name form; all repositories when empty"`
}

type ReportParams struct{}

type AnalyzeParams struct {
	Question string `json:"question,omitempty" mcp:"optional question the analysis should answer"`
}

type SendMessageParams struct {
	Text  string `json:"text" mcp:"message body"`
	Title string `json:"title,omitempty" mcp:"optional message title"`
}

// Server exposes tracker operations as MCP tools.
type Server struct {
	jobs     Jobs
	narrator Narrator
	logger   *zap.Logger
}

func New(jobs Jobs, narrator Narrator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{jobs: jobs, narrator: narrator, logger: logger}
}

// MCP builds an MCP server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_repo_data",
		Description: "Returns the recorded daily metrics history, optionally for one repository",
	}, s.GetRepoData)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "daily_report",
		Description: "Fetches current metrics, records today's snapshot and returns the day-over-day report",
	}, s.DailyReport)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "weekly_report",
		Description: "Compares the oldest and newest recorded days of the window and delivers the report",
	}, s.WeeklyReport)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze",
		Description: "Writes an AI analysis of the recent metrics window, optionally answering a question",
	}, s.Analyze)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Sends a message to the configured chat channel",
	}, s.SendMessage)

	return server
}

// ServeStdio runs the tool server on stdin/stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.MCP().Run(ctx, mcp.NewStdioTransport())
}

// SSEHandler serves the tool server over MCP SSE.
func (s *Server) SSEHandler() http.Handler {
	server := s.MCP()
	return mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server })
}

func (s *Server) GetRepoData(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RepoDataParams]) (*mcp.CallToolResultFor[any], error) {
	h := s.jobs.History(ctx)
	repo := strings.TrimSpace(params.Arguments.Repo)
	if repo != "" {
		h = h.Filter(repo)
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return failure("encode history", err), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		Meta: map[string]any{
			"repo":  repo,
			"dates": len(h),
		},
	}, nil
}

func (s *Server) DailyReport(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[ReportParams]) (*mcp.CallToolResultFor[any], error) {
	report, err := s.jobs.RunDaily(ctx)
	if err != nil && report == nil {
		return failure("daily report", err), nil
	}
	text := report.Text()
	if err != nil {
		text += fmt.Sprintf("\ndelivery failed: %v\n", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta: map[string]any{
			"date":   report.Date,
			"failed": len(report.Failed()),
		},
	}, nil
}

func (s *Server) WeeklyReport(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[ReportParams]) (*mcp.CallToolResultFor[any], error) {
	report, err := s.jobs.RunWeekly(ctx)
	if err != nil {
		if errors.Is(err, history.ErrNoData) {
			return failure("weekly report", errors.New("no data recorded yet, run daily_report first")), nil
		}
		return failure("weekly report", err), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: report.Text()}},
		Meta: map[string]any{
			"from": report.From,
			"to":   report.To,
		},
	}, nil
}

func (s *Server) Analyze(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AnalyzeParams]) (*mcp.CallToolResultFor[any], error) {
	report, err := s.jobs.WeeklyReport(ctx)
	if err != nil {
		return failure("analysis", err), nil
	}
	text, err := s.narrator.Generate(ctx, report.Data, params.Arguments.Question)
	if err != nil {
		return failure("analysis", err), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil
}

func (s *Server) SendMessage(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SendMessageParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Text) == "" {
		return failure("send message", errors.New("text is required")), nil
	}
	if err := s.jobs.Send(ctx, notify.Message{Title: args.Title, Text: args.Text}); err != nil {
		return failure("send message", err), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: "Message sent"}},
	}, nil
}

func failure(op string, err error) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s failed: %v", op, err)}},
	}
}
