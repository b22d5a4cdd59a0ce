package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/relay"
	"github.com/khanglvm/study-advisor/internal/stage"
)

type stageReport struct {
	Stage      string  `json:"stage"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
	Template   string  `json:"template,omitempty"`
	Text       string  `json:"text"`
}

type analysisReport struct {
	SessionID string        `json:"session_id"`
	State     string        `json:"state"`
	Results   []stageReport `json:"results"`
	Error     string        `json:"error,omitempty"`
}

func (s *Server) handleAnalyze(ctx context.Context, args map[string]any) (*ToolResult, error) {
	p, err := profileFromArgs(args)
	if err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}, nil
	}

	sess := s.app.NewSession(p)
	runErr := s.app.Advisor.Run(ctx, sess, relay.Discard)

	report := analysisReport{SessionID: sess.ID, State: sess.State().String()}
	for _, r := range sess.Results() {
		report.Results = append(report.Results, stageReport{
			Stage:      r.Key,
			Source:     r.Source,
			Confidence: r.Confidence,
			Template:   r.Template,
			Text:       r.Text,
		})
	}
	if runErr != nil {
		s.logger.Warn("Analysis ended early", zap.String("session", sess.ID), zap.Error(runErr))
		report.Error = runErr.Error()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: string(data), IsError: runErr != nil}, nil
}

func profileFromArgs(args map[string]any) (*profile.Profile, error) {
	surveyPath, _ := args["survey_path"].(string)
	transcriptPath, _ := args["transcript_path"].(string)
	if surveyPath != "" {
		return profile.Load(surveyPath, transcriptPath)
	}

	surveyJSON, _ := args["survey_json"].(string)
	transcriptJSON, _ := args["transcript_json"].(string)
	if surveyJSON == "" {
		return nil, errors.New("survey_path or survey_json is required")
	}
	survey, err := profile.ParseSurvey([]byte(surveyJSON))
	if err != nil {
		return nil, err
	}
	var transcript *profile.Transcript
	if transcriptJSON != "" {
		if transcript, err = profile.ParseTranscript([]byte(transcriptJSON)); err != nil {
			return nil, err
		}
	}
	return profile.New(survey, transcript), nil
}

func (s *Server) handleChat(ctx context.Context, args map[string]any) (*ToolResult, error) {
	sess, res := s.session(args)
	if res != nil {
		return res, nil
	}
	message, _ := args["message"].(string)
	if strings.TrimSpace(message) == "" {
		return &ToolResult{Content: "message is required", IsError: true}, nil
	}
	if sess.History().Len() == 0 {
		return &ToolResult{Content: "session has no completed analysis; run advisor_analyze first", IsError: true}, nil
	}

	answer, err := s.app.Advisor.Chat(ctx, sess, message, relay.Discard)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("chat failed: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: answer}, nil
}

func (s *Server) handleFeedback(ctx context.Context, args map[string]any) (*ToolResult, error) {
	sess, res := s.session(args)
	if res != nil {
		return res, nil
	}

	var raw string
	switch v := args["stage"].(type) {
	case string:
		raw = v
	case float64:
		raw = fmt.Sprint(int(v))
	}
	id, err := stage.Parse(raw)
	if err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}, nil
	}
	score, ok := args["score"].(float64)
	if !ok {
		return &ToolResult{Content: "score is required", IsError: true}, nil
	}

	if err := s.app.Advisor.Feedback(ctx, sess, id, int(score)); err != nil {
		return &ToolResult{Content: fmt.Sprintf("feedback rejected: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Recorded score %d for %s", int(score), id.Key())}, nil
}

func (s *Server) handleKnowledgeSearch(ctx context.Context, args map[string]any) (*ToolResult, error) {
	if s.app.Knowledge == nil {
		return &ToolResult{Content: "knowledge base is disabled", IsError: true}, nil
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return &ToolResult{Content: "query is required", IsError: true}, nil
	}

	topK := 0
	if k, ok := args["top_k"].(float64); ok {
		topK = int(k)
	}
	minScore := -1.0
	if m, ok := args["min_score"].(float64); ok {
		minScore = m
	}

	results, err := s.app.Knowledge.Search(ctx, query, topK, minScore)
	if errors.Is(err, knowledge.ErrUnavailable) {
		return &ToolResult{Content: "knowledge base is unavailable", IsError: true}, nil
	}
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	if len(results) == 0 {
		return &ToolResult{Content: fmt.Sprintf("No knowledge found for %q", query)}, nil
	}
	return &ToolResult{Content: formatResults(results)}, nil
}

func formatResults(results []knowledge.Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%d. [%s] score %.2f", r.Rank, r.Metadata.Type, r.Score)
		if r.Metadata.Department != "" {
			fmt.Fprintf(&b, " (%s)", r.Metadata.Department)
		}
		fmt.Fprintf(&b, "\n   %s\n", r.Content)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s *Server) handleStats(_ context.Context, args map[string]any) (*ToolResult, error) {
	var since time.Time
	if v, _ := args["since"].(string); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ToolResult{Content: fmt.Sprintf("invalid since %q: %v", v, err), IsError: true}, nil
		}
		since = time.Now().Add(-d)
	}

	stats, err := s.app.Stats(since)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("stats failed: %v", err), IsError: true}, nil
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: string(data)}, nil
}

// session resolves the session_id argument. A non-nil result reports why it
// could not.
func (s *Server) session(args map[string]any) (*advisor.Session, *ToolResult) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return nil, &ToolResult{Content: "session_id is required", IsError: true}
	}
	sess, ok := s.app.Sessions.Get(id)
	if !ok {
		return nil, &ToolResult{Content: "session not found: " + id, IsError: true}
	}
	return sess, nil
}
