// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/athleon/perform/internal/events"
	"github.com/athleon/perform/internal/expiry"
	"github.com/athleon/perform/internal/models"
	"github.com/athleon/perform/internal/storage"
)

const (
	// freeMonthlyAnalyses is the allowance before credits are charged.
	freeMonthlyAnalyses = 2

	maxUploadSize = 100 * 1024 * 1024

	// inflightTTL bounds how long an in-flight claim can block a user's
	// next upload if a request dies without releasing it.
	inflightTTL = 15 * time.Minute
)

// Analyzer is the pipeline surface the HTTP layer invokes.
type Analyzer interface {
	AnalyzeVideo(ctx context.Context, videoPath, title string) (models.AnalysisResult, error)
	AnalyzeText(ctx context.Context, sport, description string) (models.AnalysisResult, error)
	Chat(ctx context.Context, message string, chatCtx models.ChatContext) string
}

// Server wires the pipeline, storage, and messaging behind echo routes.
type Server struct {
	analyzer  Analyzer
	store     storage.Store
	publisher *events.Publisher
	inflight  *expiry.Store[struct{}]
	uploadDir string
	logger    *slog.Logger
}

func New(analyzer Analyzer, store storage.Store, publisher *events.Publisher, uploadDir string, logger *slog.Logger) *Server {
	return &Server{
		analyzer:  analyzer,
		store:     store,
		publisher: publisher,
		inflight:  expiry.NewStore[struct{}](time.Minute),
		uploadDir: uploadDir,
		logger:    logger.With("component", "server"),
	}
}

// Echo builds the configured echo instance.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s.Routes(e)
	return e
}

// Routes registers all handlers.
func (s *Server) Routes(e *echo.Echo) {
	g := e.Group("/ai")
	g.POST("/upload-video", s.uploadVideo)
	g.POST("/analyze-text", s.analyzeText)
	g.POST("/chat", s.chat)
	g.GET("/results", s.results)
	g.GET("/credits", s.credits)
	g.POST("/credits", s.grantCredits)
	g.GET("/similar", s.similar)

	e.GET("/healthz", s.healthz)
}

// Close releases server-owned resources.
func (s *Server) Close() {
	s.inflight.Close()
}
