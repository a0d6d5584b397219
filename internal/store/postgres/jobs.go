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

const jobColumns = `
	SELECT j.id, j.title, j.description, j.must_have, j.nice_to_have, j.min_years_experience,
		j.seniority_level, j.location_type, j.country, j.published, m.matrix
	FROM jobs j
	LEFT JOIN job_matrices m ON m.job_id = j.id`

// ListPublishedJobs returns published jobs ordered by id.
func (s *Store) ListPublishedJobs(ctx context.Context, ids []string) ([]store.Job, error) {
	rows, err := s.pool.Query(ctx, jobColumns+`
		WHERE j.published
		AND ($1::text[] IS NULL OR cardinality($1::text[]) = 0 OR j.id = ANY($1))
		ORDER BY j.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := []store.Job{}
	for rows.Next() {
		j, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// GetJob returns a job regardless of its published flag.
func (s *Store) GetJob(ctx context.Context, id string) (*store.Job, error) {
	j, err := s.scanJob(s.pool.QueryRow(ctx, jobColumns+` WHERE j.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// SaveJobMatrix replaces the job's matrix.
func (s *Store) SaveJobMatrix(ctx context.Context, id string, m *matrix.JobMatrix, generatedAt time.Time) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal job matrix: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO job_matrices (job_id, matrix, generated_at)
		SELECT id, $2::jsonb, $3 FROM jobs WHERE id = $1
		ON CONFLICT (job_id) DO UPDATE
		SET matrix = EXCLUDED.matrix, generated_at = EXCLUDED.generated_at`,
		id, string(doc), generatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert job matrix: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PutJob inserts or updates a job posting and, when present, its matrix.
func (s *Store) PutJob(ctx context.Context, j store.Job) error {
	mustHave, niceToHave := nonNil(j.MustHave), nonNil(j.NiceToHave)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, title, description, must_have, nice_to_have, min_years_experience,
			seniority_level, location_type, country, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			must_have = EXCLUDED.must_have,
			nice_to_have = EXCLUDED.nice_to_have,
			min_years_experience = EXCLUDED.min_years_experience,
			seniority_level = EXCLUDED.seniority_level,
			location_type = EXCLUDED.location_type,
			country = EXCLUDED.country,
			published = EXCLUDED.published`,
		j.ID, j.Title, j.Description, mustHave, niceToHave, j.MinYears,
		j.Seniority, j.LocationType, j.Country, j.Published)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	if j.Matrix != nil {
		return s.SaveJobMatrix(ctx, j.ID, j.Matrix, time.Now())
	}
	return nil
}

func (s *Store) scanJob(row pgx.Row) (*store.Job, error) {
	var (
		j   store.Job
		doc []byte
	)
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.MustHave, &j.NiceToHave, &j.MinYears,
		&j.Seniority, &j.LocationType, &j.Country, &j.Published, &doc)
	if err != nil {
		return nil, err
	}
	j.MustHave, j.NiceToHave = nonNil(j.MustHave), nonNil(j.NiceToHave)
	if doc != nil {
		j.Matrix = store.DecodeJobMatrix(s.logger, j.ID, doc)
	}
	return &j, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
