/*
Package httpapi serves the advisor over HTTP.

Analysis and chat responses are streamed as newline-delimited JSON, one
relay.Event per line. The analysis response carries the new session id in
the X-Session-ID header; chat and feedback requests name it either in that
header or in the body.
*/
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/app"
)

// SessionHeader carries the session id.
const SessionHeader = "X-Session-ID"

const ndjsonContentType = "application/x-ndjson; charset=utf-8"

const shutdownTimeout = 10 * time.Second

// Server is the HTTP surface.
type Server struct {
	app    *app.App
	router *gin.Engine
	logger *zap.Logger
}

// New builds the router. Development mode keeps gin's debug output.
func New(a *app.App, development bool) *Server {
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		app:    a,
		router: gin.New(),
		logger: a.Logger.Named("http"),
	}
	s.router.Use(requestLogger(s.logger), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/analysis", s.handleAnalysis)
	api.POST("/chat", s.handleChat)
	api.POST("/feedback", s.handleFeedback)
	api.GET("/stats", s.handleStats)
	api.GET("/knowledge/search", s.handleKnowledgeSearch)
	api.GET("/sessions/:id", s.handleSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("session", c.Writer.Header().Get(SessionHeader)),
		)
	}
}
