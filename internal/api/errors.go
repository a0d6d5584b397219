package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/matcher"
	"github.com/spigell/talent-matcher/internal/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks request errors found before the service is called.
var errBadRequest = errors.New("bad request")

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, code := classify(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		code = strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_")
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	if err := c.JSON(status, ErrorResponse{Error: code, Message: message}); err != nil {
		s.logger.Warn("writing error response", zap.Error(err))
	}
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, matcher.ErrMissingMatrix):
		return http.StatusNotFound, "matrix_not_found"
	case errors.Is(err, matcher.ErrCandidateNotFound):
		return http.StatusNotFound, "candidate_not_found"
	case errors.Is(err, matcher.ErrJobNotFound):
		return http.StatusNotFound, "job_not_found"
	case errors.Is(err, matcher.ErrMatchNotFound):
		return http.StatusNotFound, "match_not_found"
	case errors.Is(err, bulk.ErrNotFound):
		return http.StatusNotFound, "bulk_job_not_found"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, matcher.ErrExtractorDisabled):
		return http.StatusServiceUnavailable, "extractor_disabled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
