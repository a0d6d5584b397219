package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/store"
)

const candidateColumns = `
	SELECT c.id, c.name, c.headline, c.country, m.matrix, m.generated_at
	FROM candidates c
	LEFT JOIN LATERAL (
		SELECT matrix, generated_at
		FROM candidate_matrices
		WHERE candidate_id = c.id
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	) m ON TRUE`

// ListCandidates returns candidates with their latest matrix snapshot.
func (s *Store) ListCandidates(ctx context.Context, ids []string) ([]store.Candidate, error) {
	rows, err := s.pool.Query(ctx, candidateColumns+`
		WHERE $1::text[] IS NULL OR cardinality($1::text[]) = 0 OR c.id = ANY($1)
		ORDER BY c.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := []store.Candidate{}
	for rows.Next() {
		c, err := s.scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetCandidate returns a candidate with its latest matrix snapshot.
func (s *Store) GetCandidate(ctx context.Context, id string) (*store.Candidate, error) {
	row := s.pool.QueryRow(ctx, candidateColumns+` WHERE c.id = $1`, id)
	c, err := s.scanCandidate(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// SaveCandidateMatrix appends a new matrix snapshot for the candidate.
func (s *Store) SaveCandidateMatrix(ctx context.Context, id string, m *matrix.CandidateMatrix, generatedAt time.Time) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal candidate matrix: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO candidate_matrices (candidate_id, matrix, generated_at)
		SELECT id, $2::jsonb, $3 FROM candidates WHERE id = $1`,
		id, string(doc), generatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert candidate matrix: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// LatestCV returns the most recently uploaded CV text.
func (s *Store) LatestCV(ctx context.Context, candidateID string) (string, error) {
	var content string
	err := s.pool.QueryRow(ctx, `
		SELECT content FROM candidate_cvs
		WHERE candidate_id = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1`, candidateID).Scan(&content)
	if err != nil {
		return "", notFound(err)
	}
	return content, nil
}

// PutCandidate inserts or updates a candidate's profile fields.
func (s *Store) PutCandidate(ctx context.Context, c store.Candidate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO candidates (id, name, headline, country)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, headline = EXCLUDED.headline, country = EXCLUDED.country`,
		c.ID, c.Name, c.Headline, c.Country)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	if c.Matrix != nil {
		at := time.Now().UTC()
		if c.MatrixGeneratedAt != nil {
			at = *c.MatrixGeneratedAt
		}
		return s.SaveCandidateMatrix(ctx, c.ID, c.Matrix, at)
	}
	return nil
}

// AddCV stores a new CV upload for the candidate.
func (s *Store) AddCV(ctx context.Context, candidateID, text string, uploadedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO candidate_cvs (candidate_id, content, uploaded_at)
		SELECT id, $2, $3 FROM candidates WHERE id = $1`,
		candidateID, text, uploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert cv: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) scanCandidate(row pgx.Row) (*store.Candidate, error) {
	var (
		c           store.Candidate
		doc         []byte
		generatedAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Headline, &c.Country, &doc, &generatedAt); err != nil {
		return nil, err
	}
	if doc != nil {
		c.Matrix = store.DecodeCandidateMatrix(s.logger, c.ID, doc)
		if c.Matrix != nil {
			c.MatrixGeneratedAt = generatedAt
		}
	}
	return &c, nil
}
