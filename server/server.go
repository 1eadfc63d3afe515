// Package server exposes the summarizer, history, export and Q&A engines
// over HTTP and a websocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/internal/unidoc"
	"github.com/xhad/skim/pkg/events"
	"github.com/xhad/skim/pkg/export"
	"github.com/xhad/skim/pkg/qa"
	"github.com/xhad/skim/pkg/store"
	"github.com/xhad/skim/pkg/summarizer"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Summarizer   *summarizer.Summarizer
	QA           *qa.Engine
	History      types.SummaryHistory
	URLExtractor types.URLExtractor
	PDFExtractor types.PDFExtractor
	// Crawler, when set, serves Q&A sessions that ask to follow links.
	Crawler      Crawler
	Events       *events.Broker[models.Progress]

	CORSOrigins    []string
	MaxUploadBytes int64
	DefaultStyle   models.Style
	Logger         *zap.Logger
}

type Crawler interface {
	Scrape(ctx context.Context, startURL string) ([]models.Document, error)
}

type Server struct {
	config ServerConfig
	logger *zap.Logger
	router *gin.Engine
}

func NewWithConfig(config ServerConfig) *Server {
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"*"}
	}
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 10 << 20
	}
	if config.DefaultStyle == "" {
		config.DefaultStyle = models.StyleShort
	}

	s := &Server{
		config: config,
		logger: logging.OrNop(config.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "skim",
		})
	})
	router.GET("/ws", s.handleWebSocket)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/summarize", s.summarize)
		apiV1.GET("/summaries", s.listSummaries)
		apiV1.GET("/summaries/:id", s.getSummary)
		apiV1.GET("/summaries/:id/export", s.exportSummary)
		apiV1.POST("/export", s.exportDirect)

		apiV1.GET("/qa/sessions", s.listSessions)
		apiV1.POST("/qa/sessions", s.createSession)
		apiV1.POST("/qa/sessions/:id/ask", s.ask)
		apiV1.DELETE("/qa/sessions/:id", s.deleteSession)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.config.CORSOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := s.allowedOrigin(c.GetHeader("Origin")); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

var (
	errInvalidRequest = errors.New("invalid request body")
	errUploadTooLarge = errors.New("upload too large")
	errUnavailable    = errors.New("feature not configured")
)

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, summarizer.ErrEmptyInput),
		errors.Is(err, summarizer.ErrNoFile),
		errors.Is(err, qa.ErrEmptyQuestion),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, errInvalidRequest),
		errors.Is(err, errInvalidStyle):
		return http.StatusBadRequest
	case errors.Is(err, summarizer.ErrInsufficientContent), errors.Is(err, qa.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, qa.ErrSessionNotFound), errors.Is(err, store.ErrSummaryNotFound):
		return http.StatusNotFound
	case errors.Is(err, summarizer.ErrCompletion):
		return http.StatusBadGateway
	case errors.Is(err, errUnavailable), errors.Is(err, unidoc.ErrUnlicensed):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, summarizer.ErrEmptyInput),
		errors.Is(err, summarizer.ErrNoFile),
		errors.Is(err, summarizer.ErrInsufficientContent),
		errors.Is(err, summarizer.ErrCompletion),
		errors.Is(err, unidoc.ErrUnlicensed):
		return summarizer.UserMessage(err)
	case statusFor(err) == http.StatusInternalServerError:
		return "Error: internal error"
	default:
		return err.Error()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": messageFor(err)})
}
