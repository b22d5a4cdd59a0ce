package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/relay"
	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/version"
)

const errAnalysisMissing = "Phân tích ban đầu chưa được thực hiện hoặc đã xảy ra lỗi. Vui lòng chạy lại phân tích."

type analysisRequest struct {
	// Survey and Transcript are the raw exports.
	Survey     json.RawMessage  `json:"survey"`
	Transcript json.RawMessage  `json:"transcript"`
	Profile    *profile.Profile `json:"profile"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type feedbackRequest struct {
	SessionID string     `json:"session_id"`
	Stage     stageParam `json:"stage"`
	Score     int        `json:"score"`
}

// stageParam accepts a stage number or wire key.
type stageParam struct {
	stage.ID
}

func (p *stageParam) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	id, err := stage.Parse(raw)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   version.Version,
		"backend":   s.app.Client.ChatURL(),
		"model":     s.app.Config.Backend.Model,
		"cache":     s.app.Cache != nil,
		"knowledge": s.app.Knowledge != nil,
		"templates": s.app.Matcher != nil,
	})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	p, err := req.profile()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.app.NewSession(p)
	c.Header(SessionHeader, sess.ID)
	out := s.stream(c)

	if err := s.app.Advisor.Run(c.Request.Context(), sess, out); err != nil {
		s.logger.Warn("Analysis ended early", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (r analysisRequest) profile() (*profile.Profile, error) {
	if r.Profile != nil {
		return r.Profile, nil
	}
	if len(r.Survey) == 0 && len(r.Transcript) == 0 {
		return nil, errors.New("survey and transcript are required")
	}

	var (
		survey     *profile.SurveyRecord
		transcript *profile.Transcript
		err        error
	)
	if len(r.Survey) > 0 && string(r.Survey) != "null" {
		if survey, err = profile.ParseSurvey(r.Survey); err != nil {
			return nil, err
		}
	}
	if len(r.Transcript) > 0 && string(r.Transcript) != "null" {
		if transcript, err = profile.ParseTranscript(r.Transcript); err != nil {
			return nil, err
		}
	}
	return profile.New(survey, transcript), nil
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}
	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return
	}
	if sess.History().Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errAnalysisMissing})
		return
	}

	out := s.stream(c)
	if _, err := s.app.Advisor.Chat(c.Request.Context(), sess, req.Message, out); err != nil {
		s.logger.Warn("Chat failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	sess, ok := s.session(c, req.SessionID)
	if !ok {
		return
	}

	err := s.app.Advisor.Feedback(c.Request.Context(), sess, req.Stage.ID, req.Score)
	switch {
	case errors.Is(err, advisor.ErrInvalidScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, advisor.ErrNoResult):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "recorded", "stage": req.Stage.Key(), "score": req.Score})
	}
}

func (s *Server) handleStats(c *gin.Context) {
	var since time.Time
	if v := c.Query("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid since %q: %v", v, err)})
			return
		}
		since = time.Now().Add(-d)
	}

	stats, err := s.app.Stats(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleKnowledgeSearch(c *gin.Context) {
	if s.app.Knowledge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base is disabled"})
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	topK, err := strconv.Atoi(c.DefaultQuery("top_k", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be an integer"})
		return
	}
	minScore, err := strconv.ParseFloat(c.DefaultQuery("min_score", "-1"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be a number"})
		return
	}

	var results []knowledge.Result
	switch mode := c.DefaultQuery("mode", ""); mode {
	case "":
		results, err = s.app.Knowledge.Search(c.Request.Context(), query, topK, minScore)
	case "bm25":
		results, err = s.app.Knowledge.SearchBM25(query, max(topK, 1))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown mode %q", mode)})
		return
	}
	if errors.Is(err, knowledge.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []knowledge.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

func (s *Server) handleSession(c *gin.Context) {
	sess, ok := s.session(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !s.app.Sessions.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + id})
		return
	}
	c.Status(http.StatusNoContent)
}

// session resolves id, falling back to the session header. It writes the
// error response when the session is unknown.
func (s *Server) session(c *gin.Context, id string) (*advisor.Session, bool) {
	if id == "" {
		id = c.GetHeader(SessionHeader)
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return nil, false
	}
	sess, ok := s.app.Sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + id})
		return nil, false
	}
	return sess, true
}

// stream starts an NDJSON response.
func (s *Server) stream(c *gin.Context) relay.Emitter {
	c.Header("Content-Type", ndjsonContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	return relay.NewNDJSONWriter(c.Writer)
}
