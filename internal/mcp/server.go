/*
Package mcp exposes the advisor as MCP tools over stdio.

The server registers five tools:
  - advisor_analyze: run the three-stage analysis for a learner
  - advisor_chat: ask a follow-up question in an analysed session
  - advisor_feedback: rate a stage result from 1 to 5
  - knowledge_search: query the advising knowledge base
  - advisor_stats: cache, knowledge, template and usage statistics
*/
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/app"
	"github.com/khanglvm/study-advisor/internal/version"
)

// Server is the study-advisor MCP server.
type Server struct {
	app       *app.App
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates the server with every tool registered.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger.Named("mcp"),
	}
	s.mcpServer = server.NewMCPServer(
		"study-advisor",
		version.Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Run serves stdin/stdout until stdin closes.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes one raw JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "advisor_analyze", Description: "Run the three-stage learning analysis for a student"},
		{Name: "advisor_chat", Description: "Ask a follow-up question about an analysed student"},
		{Name: "advisor_feedback", Description: "Rate a stage result from 1 to 5"},
		{Name: "knowledge_search", Description: "Search the advising knowledge base"},
		{Name: "advisor_stats", Description: "Report cache, knowledge, template and usage statistics"},
	}
}

// CallTool executes a tool by name.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "advisor_analyze":
		return s.handleAnalyze(ctx, args)
	case "advisor_chat":
		return s.handleChat(ctx, args)
	case "advisor_feedback":
		return s.handleFeedback(ctx, args)
	case "knowledge_search":
		return s.handleKnowledgeSearch(ctx, args)
	case "advisor_stats":
		return s.handleStats(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("advisor_analyze",
		mcp.WithDescription(`Run the three-stage learning analysis for a student: learning skills from the survey, specialised grades from the transcript, then combined recommendations.

WHEN TO USE: Start here for any new student. Returns a session_id for advisor_chat and advisor_feedback.

INPUT: Either file paths (survey_path, transcript_path) or the raw JSON exports (survey_json, transcript_json).`),
		mcp.WithString("survey_path",
			mcp.Description("Path to the survey export (JSON array, first record is used)"),
		),
		mcp.WithString("transcript_path",
			mcp.Description("Path to the transcript export (data.ds_diem_hocky)"),
		),
		mcp.WithString("survey_json",
			mcp.Description("Raw survey export, used when survey_path is not given"),
		),
		mcp.WithString("transcript_json",
			mcp.Description("Raw transcript export, used when transcript_path is not given"),
		),
	), s.wrap(s.handleAnalyze))

	s.mcpServer.AddTool(mcp.NewTool("advisor_chat",
		mcp.WithDescription(`Ask a follow-up question in an analysed session. The conversation continues from the final recommendations.

WHEN TO USE: After advisor_analyze, for clarifications or deeper advice.`),
		mcp.WithString("session_id",
			mcp.Description("Session id returned by advisor_analyze"),
			mcp.Required(),
		),
		mcp.WithString("message",
			mcp.Description("The question to ask"),
			mcp.Required(),
		),
	), s.wrap(s.handleChat))

	s.mcpServer.AddTool(mcp.NewTool("advisor_feedback",
		mcp.WithDescription(`Rate a stage result from 1 to 5. Ratings of 4 or more boost the cached answer; a 5 also stores it as a case study in the knowledge base.`),
		mcp.WithString("session_id",
			mcp.Description("Session id returned by advisor_analyze"),
			mcp.Required(),
		),
		mcp.WithString("stage",
			mcp.Description("Stage number (1-3) or key (stage1_khaosat, stage2_diem, stage3_tonghop)"),
			mcp.Required(),
		),
		mcp.WithNumber("score",
			mcp.Description("Rating from 1 to 5"),
			mcp.Required(),
		),
	), s.wrap(s.handleFeedback))

	s.mcpServer.AddTool(mcp.NewTool("knowledge_search",
		mcp.WithDescription(`Search the advising knowledge base (study methods, department guidance, skill advice, case studies).`),
		mcp.WithString("query",
			mcp.Description("What to search for"),
			mcp.Required(),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results (default from config)"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum similarity 0.0-1.0 (default from config)"),
		),
	), s.wrap(s.handleKnowledgeSearch))

	s.mcpServer.AddTool(mcp.NewTool("advisor_stats",
		mcp.WithDescription(`Report cache hit rate, knowledge base coverage, template usage and consultation totals.`),
		mcp.WithString("since",
			mcp.Description("Only count usage in this window, e.g. 24h (default: all time)"),
		),
	), s.wrap(s.handleStats))
}

type handlerFunc func(ctx context.Context, args map[string]any) (*ToolResult, error)

func (s *Server) wrap(h handlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
		IsError: r.IsError,
	}
}
