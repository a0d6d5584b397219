package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/scoring"
	"github.com/spigell/talent-matcher/internal/store"
)

type calculateRequest struct {
	CandidateID string `json:"candidateId" validate:"required"`
	JobID       string `json:"jobId" validate:"required"`
}

// calculateResponse carries the stored match, or the reason there is none.
type calculateResponse struct {
	Match            *store.Match       `json:"match"`
	Eligible         bool               `json:"eligible"`
	Reason           string             `json:"reason,omitempty"`
	Score            int                `json:"score"`
	Breakdown        *scoring.Breakdown `json:"breakdown,omitempty"`
	ExplanationError string             `json:"explanationError,omitempty"`
}

type bulkRequest struct {
	Type         string   `json:"type" validate:"required,oneof=regenerate-matrices rerun-matching regenerate-and-match job-matching"`
	CandidateIDs []string `json:"candidateIds" validate:"omitempty,dive,required"`
	JobIDs       []string `json:"jobIds" validate:"omitempty,dive,required"`
	OnlyMissing  bool     `json:"onlyMissing"`
}

type idParam struct {
	ID string `param:"id" validate:"required"`
}

func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return s.validate.Struct(req)
}

func (s *Server) pathID(c echo.Context) (string, error) {
	p := idParam{ID: strings.TrimSpace(c.Param("id"))}
	if err := s.validate.Struct(&p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) calculateMatch(c echo.Context) error {
	var req calculateRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	outcome, err := s.svc.CalculateMatch(c.Request().Context(), req.CandidateID, req.JobID)
	if err != nil {
		return err
	}

	resp := calculateResponse{
		Match:    outcome.Match,
		Eligible: !outcome.Skipped(),
		Score:    outcome.Score,
	}
	if outcome.Skipped() {
		resp.Reason = outcome.Verdict.Reason
	} else {
		resp.Breakdown = &outcome.Breakdown
	}
	if outcome.ExplainError != nil {
		resp.ExplanationError = outcome.ExplainError.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getMatch(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	match, err := s.svc.GetMatch(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, match)
}

func (s *Server) shortlistMatch(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	match, err := s.svc.ShortlistMatch(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, match)
}

func (s *Server) rejectMatch(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	match, err := s.svc.RejectMatch(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, match)
}

func (s *Server) listJobMatches(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	matches, err := s.svc.ListMatchesForJob(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": nonNilMatches(matches)})
}

func (s *Server) calculateJobMatches(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	bulkJobID, err := s.svc.CalculateMatchesForJob(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"bulkJobId": bulkJobID})
}

func (s *Server) listCandidateMatches(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	matches, err := s.svc.ListMatchesForCandidate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": nonNilMatches(matches)})
}

func (s *Server) regenerateMatrix(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	candidate, err := s.svc.RegenerateCandidateMatrix(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, candidate)
}

func (s *Server) startBulkJob(c echo.Context) error {
	var body bulkRequest
	if err := s.bind(c, &body); err != nil {
		return err
	}

	req := bulk.Request{
		Type:         bulk.Type(body.Type),
		CandidateIDs: body.CandidateIDs,
		JobIDs:       body.JobIDs,
		OnlyMissing:  body.OnlyMissing,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	job, err := s.svc.StartBulkJob(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"jobId": job.ID})
}

func (s *Server) listBulkJobs(c echo.Context) error {
	jobs, err := s.svc.ListBulkJobs(c.Request().Context())
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []*bulk.Job{}
	}
	return c.JSON(http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) bulkJobStatus(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	job, err := s.svc.BulkJobStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) cancelBulkJob(c echo.Context) error {
	id, err := s.pathID(c)
	if err != nil {
		return err
	}
	job, err := s.svc.CancelBulkJob(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func nonNilMatches(in []store.Match) []store.Match {
	if in == nil {
		return []store.Match{}
	}
	return in
}
