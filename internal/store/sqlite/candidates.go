package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/store"
)

const candidateColumns = `
	SELECT c.id, c.name, c.headline, c.country,
		(SELECT m.matrix FROM candidate_matrices m WHERE m.candidate_id = c.id
			ORDER BY m.generated_at DESC, m.id DESC LIMIT 1),
		(SELECT m.generated_at FROM candidate_matrices m WHERE m.candidate_id = c.id
			ORDER BY m.generated_at DESC, m.id DESC LIMIT 1)
	FROM candidates c`

type scanner interface {
	Scan(dest ...any) error
}

// ListCandidates returns candidates with their latest matrix snapshot.
func (s *Store) ListCandidates(ctx context.Context, ids []string) ([]store.Candidate, error) {
	query := candidateColumns
	var args []any
	if len(ids) > 0 {
		var in string
		in, args = inClause(ids)
		query += ` WHERE c.id IN ` + in
	}

	rows, err := s.db.QueryContext(ctx, query+` ORDER BY c.id`, args...)
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
	c, err := s.scanCandidate(s.db.QueryRowContext(ctx, candidateColumns+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// SaveCandidateMatrix appends a new matrix snapshot for the candidate.
func (s *Store) SaveCandidateMatrix(ctx context.Context, id string, m *matrix.CandidateMatrix, generatedAt time.Time) error {
	ok, err := s.exists(ctx, "candidates", id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal candidate matrix: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidate_matrices (candidate_id, matrix, generated_at) VALUES (?, ?, ?)`,
		id, string(doc), formatTime(generatedAt))
	if err != nil {
		return fmt.Errorf("insert candidate matrix: %w", err)
	}
	return nil
}

// LatestCV returns the most recently uploaded CV text.
func (s *Store) LatestCV(ctx context.Context, candidateID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT content FROM candidate_cvs
		WHERE candidate_id = ?
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1`, candidateID).Scan(&content)
	if err != nil {
		return "", notFound(err)
	}
	return content, nil
}

// PutCandidate inserts or updates a candidate's profile fields.
func (s *Store) PutCandidate(ctx context.Context, c store.Candidate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, name, headline, country, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, headline = excluded.headline, country = excluded.country`,
		c.ID, c.Name, c.Headline, c.Country, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	if c.Matrix != nil {
		at := time.Now()
		if c.MatrixGeneratedAt != nil {
			at = *c.MatrixGeneratedAt
		}
		return s.SaveCandidateMatrix(ctx, c.ID, c.Matrix, at)
	}
	return nil
}

// AddCV stores a new CV upload for the candidate.
func (s *Store) AddCV(ctx context.Context, candidateID, text string, uploadedAt time.Time) error {
	ok, err := s.exists(ctx, "candidates", candidateID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidate_cvs (candidate_id, content, uploaded_at) VALUES (?, ?, ?)`,
		candidateID, text, formatTime(uploadedAt))
	if err != nil {
		return fmt.Errorf("insert cv: %w", err)
	}
	return nil
}

func (s *Store) scanCandidate(row scanner) (*store.Candidate, error) {
	var (
		c           store.Candidate
		doc         sql.NullString
		generatedAt sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Headline, &c.Country, &doc, &generatedAt); err != nil {
		return nil, err
	}
	if doc.Valid {
		c.Matrix = store.DecodeCandidateMatrix(s.logger, c.ID, []byte(doc.String))
		if c.Matrix != nil && generatedAt.Valid {
			at, err := parseTime(generatedAt.String)
			if err != nil {
				return nil, err
			}
			c.MatrixGeneratedAt = &at
		}
	}
	return &c, nil
}
