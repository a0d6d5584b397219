// Package api exposes the matching operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/matcher"
	"github.com/spigell/talent-matcher/internal/store"
)

// Service is the part of the matching service the API calls.
type Service interface {
	CalculateMatch(ctx context.Context, candidateID, jobID string) (*matcher.Outcome, error)
	CalculateMatchesForJob(ctx context.Context, jobID string) (string, error)
	ListMatchesForJob(ctx context.Context, jobID string) ([]store.Match, error)
	ListMatchesForCandidate(ctx context.Context, candidateID string) ([]store.Match, error)
	GetMatch(ctx context.Context, matchID string) (*store.Match, error)
	ShortlistMatch(ctx context.Context, matchID string) (*store.Match, error)
	RejectMatch(ctx context.Context, matchID string) (*store.Match, error)
	RegenerateCandidateMatrix(ctx context.Context, candidateID string) (*store.Candidate, error)

	StartBulkJob(ctx context.Context, req bulk.Request) (*bulk.Job, error)
	BulkJobStatus(ctx context.Context, id string) (*bulk.Job, error)
	CancelBulkJob(ctx context.Context, id string) (*bulk.Job, error)
	ListBulkJobs(ctx context.Context) ([]*bulk.Job, error)
}

// Server is the HTTP front of the matching service.
type Server struct {
	echo     *echo.Echo
	svc      Service
	validate *validator.Validate
	logger   *zap.Logger
	version  string
}

func New(svc Service, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		svc:      svc,
		validate: validator.New(),
		logger:   log,
		version:  version,
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)

	v1 := s.echo.Group("/api/v1")
	{
		v1.POST("/matches/calculate", s.calculateMatch)
		v1.GET("/matches/:id", s.getMatch)
		v1.POST("/matches/:id/shortlist", s.shortlistMatch)
		v1.POST("/matches/:id/reject", s.rejectMatch)

		v1.GET("/jobs/:id/matches", s.listJobMatches)
		v1.POST("/jobs/:id/matches/calculate", s.calculateJobMatches)

		v1.GET("/candidates/:id/matches", s.listCandidateMatches)
		v1.POST("/candidates/:id/matrix/regenerate", s.regenerateMatrix)

		v1.POST("/bulk", s.startBulkJob)
		v1.GET("/bulk", s.listBulkJobs)
		v1.GET("/bulk/:id", s.bulkJobStatus)
		v1.POST("/bulk/:id/cancel", s.cancelBulkJob)
	}
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones up to timeout.
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
