// Package httpapi exposes the tutoring pipeline over a thin HTTP surface.
// Handlers only adapt JSON to the tutor service; no pipeline logic lives
// here.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/consent"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

// TutorService is the pipeline surface the handlers adapt to.
type TutorService interface {
	Answer(ctx context.Context, req tutor.AnswerRequest) (string, error)
	SimilarPatterns(ctx context.Context, studentID, challenge string, limit int) ([]tutor.PatternInsight, error)
	RecommendContent(ctx context.Context, studentID, topic string, difficulty int, learningStyle string, limit int) ([]tutor.Recommendation, error)
	LearningTrajectory(ctx context.Context, studentID, subject string) (*tutor.Trajectory, error)
	RecordSkillAssessment(ctx context.Context, studentID, skill, subject string, competency float64) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server serves the tutoring API.
type Server struct {
	echo   *echo.Echo
	tutor  TutorService
	logger *logging.Logger
	config Config
}

// NewServer creates the HTTP server with routes and middleware registered.
func NewServer(svc TutorService, cfg Config, logger *logging.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("tutor service is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9390
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewMetrics(logger).Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		tutor:  svc,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/answer", s.handleAnswer)
	v1.POST("/patterns", s.handlePatterns)
	v1.POST("/recommendations", s.handleRecommendations)
	v1.GET("/students/:student_id/trajectory", s.handleTrajectory)
	v1.POST("/assessments", s.handleAssessment)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// AnswerResponse is the response body for POST /api/v1/answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAnswer(c echo.Context) error {
	var req tutor.AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" || req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id and question are required")
	}

	answer, err := s.tutor.Answer(c.Request().Context(), req)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, AnswerResponse{Answer: answer})
}

// PatternsRequest is the request body for POST /api/v1/patterns.
type PatternsRequest struct {
	StudentID string `json:"student_id"`
	Challenge string `json:"challenge"`
	Limit     int    `json:"limit,omitempty"`
}

func (s *Server) handlePatterns(c echo.Context) error {
	var req PatternsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" || req.Challenge == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id and challenge are required")
	}

	insights, err := s.tutor.SimilarPatterns(c.Request().Context(), req.StudentID, req.Challenge, req.Limit)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]tutor.PatternInsight{"patterns": insights})
}

// RecommendationsRequest is the request body for POST /api/v1/recommendations.
type RecommendationsRequest struct {
	StudentID     string `json:"student_id"`
	Topic         string `json:"topic"`
	Difficulty    int    `json:"difficulty"`
	LearningStyle string `json:"learning_style,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

func (s *Server) handleRecommendations(c echo.Context) error {
	var req RecommendationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" || req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id and topic are required")
	}

	recommendations, err := s.tutor.RecommendContent(c.Request().Context(), req.StudentID, req.Topic, req.Difficulty, req.LearningStyle, req.Limit)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]tutor.Recommendation{"recommendations": recommendations})
}

func (s *Server) handleTrajectory(c echo.Context) error {
	studentID := c.Param("student_id")
	subject := c.QueryParam("subject")

	trajectory, err := s.tutor.LearningTrajectory(c.Request().Context(), studentID, subject)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, trajectory)
}

// AssessmentRequest is the request body for POST /api/v1/assessments.
type AssessmentRequest struct {
	StudentID  string  `json:"student_id"`
	Skill      string  `json:"skill"`
	Subject    string  `json:"subject,omitempty"`
	Competency float64 `json:"competency"`
}

// AssessmentResponse is the response body for POST /api/v1/assessments.
type AssessmentResponse struct {
	RecordID string `json:"record_id"`
}

func (s *Server) handleAssessment(c echo.Context) error {
	var req AssessmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" || req.Skill == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id and skill are required")
	}

	id, err := s.tutor.RecordSkillAssessment(c.Request().Context(), req.StudentID, req.Skill, req.Subject, req.Competency)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, AssessmentResponse{RecordID: id})
}

// mapError translates pipeline errors into HTTP status codes without leaking
// internals to the client.
func (s *Server) mapError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	switch {
	case errors.Is(err, vectorstore.ErrInvalidScope), errors.Is(err, memory.ErrInvalidRecord):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	case errors.Is(err, consent.ErrConsentResolution):
		s.logger.Error(ctx, "consent resolution failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "consent lookup unavailable")
	case errors.Is(err, memory.ErrStoreQuery), errors.Is(err, memory.ErrStoreWrite):
		s.logger.Error(ctx, "memory store unavailable", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "memory store unavailable")
	default:
		s.logger.Error(ctx, "request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server and blocks until shutdown or failure.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
