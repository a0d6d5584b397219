package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spigell/talent-matcher/internal/store"
)

const matchColumns = `id, candidate_id, job_id, score, breakdown, explanation, gaps, status, calculated_at, created_at`

// Upsert writes the pair's match. An older calculation never overwrites a newer one.
func (s *Store) Upsert(ctx context.Context, in store.MatchInput) (*store.Match, error) {
	breakdown, gaps, err := store.EncodeMatchDocs(in.Breakdown, in.Gaps)
	if err != nil {
		return nil, err
	}
	calculatedAt := in.CalculatedAt.UTC()
	if calculatedAt.IsZero() {
		calculatedAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO matches (id, candidate_id, job_id, score, breakdown, explanation, gaps, status, calculated_at, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7::jsonb, 'pending', $8, NOW())
		ON CONFLICT (candidate_id, job_id) DO UPDATE
		SET score = EXCLUDED.score,
			breakdown = EXCLUDED.breakdown,
			explanation = EXCLUDED.explanation,
			gaps = EXCLUDED.gaps,
			calculated_at = EXCLUDED.calculated_at
		WHERE matches.calculated_at <= EXCLUDED.calculated_at
		RETURNING `+matchColumns,
		uuid.NewString(), in.CandidateID, in.JobID, in.Score, string(breakdown), in.Explanation, string(gaps), calculatedAt)

	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// A newer calculation is already stored.
		return s.GetByPair(ctx, in.CandidateID, in.JobID)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert match: %w", err)
	}
	return m, nil
}

// Get returns a match by id.
func (s *Store) Get(ctx context.Context, id string) (*store.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// GetByPair returns the match of a candidate/job pair.
func (s *Store) GetByPair(ctx context.Context, candidateID, jobID string) (*store.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE candidate_id = $1 AND job_id = $2`, candidateID, jobID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// SetStatus changes only the status of a match.
func (s *Store) SetStatus(ctx context.Context, id string, status store.MatchStatus) (*store.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx,
		`UPDATE matches SET status = $2 WHERE id = $1 RETURNING `+matchColumns, id, string(status)))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListForJob returns a job's matches at or above minScore, best first.
func (s *Store) ListForJob(ctx context.Context, jobID string, minScore int) ([]store.Match, error) {
	return s.listMatches(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE job_id = $1 AND score >= $2
		ORDER BY score DESC, calculated_at DESC, id`, jobID, minScore)
}

// ListForCandidate returns a candidate's matches at or above minScore, best first.
func (s *Store) ListForCandidate(ctx context.Context, candidateID string, minScore int) ([]store.Match, error) {
	return s.listMatches(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE candidate_id = $1 AND score >= $2
		ORDER BY score DESC, calculated_at DESC, id`, candidateID, minScore)
}

func (s *Store) listMatches(ctx context.Context, query string, args ...any) ([]store.Match, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out := []store.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*store.Match, error) {
	var (
		m               store.Match
		status          string
		breakdown, gaps []byte
	)
	err := row.Scan(&m.ID, &m.CandidateID, &m.JobID, &m.Score, &breakdown, &m.Explanation, &gaps,
		&status, &m.CalculatedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if m.Status, err = store.ParseMatchStatus(status); err != nil {
		return nil, err
	}
	if err := store.DecodeMatchDocs(&m, breakdown, gaps); err != nil {
		return nil, err
	}
	return &m, nil
}
