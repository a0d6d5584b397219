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

const jobColumns = `
	SELECT j.id, j.title, j.description, j.must_have, j.nice_to_have, j.min_years_experience,
		j.seniority_level, j.location_type, j.country, j.published, m.matrix
	FROM jobs j
	LEFT JOIN job_matrices m ON m.job_id = j.id`

// ListPublishedJobs returns published jobs ordered by id.
func (s *Store) ListPublishedJobs(ctx context.Context, ids []string) ([]store.Job, error) {
	query := jobColumns + ` WHERE j.published = 1`
	var args []any
	if len(ids) > 0 {
		var in string
		in, args = inClause(ids)
		query += ` AND j.id IN ` + in
	}

	rows, err := s.db.QueryContext(ctx, query+` ORDER BY j.id`, args...)
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
	j, err := s.scanJob(s.db.QueryRowContext(ctx, jobColumns+` WHERE j.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// SaveJobMatrix replaces the job's matrix.
func (s *Store) SaveJobMatrix(ctx context.Context, id string, m *matrix.JobMatrix, generatedAt time.Time) error {
	ok, err := s.exists(ctx, "jobs", id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal job matrix: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_matrices (job_id, matrix, generated_at) VALUES (?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE
		SET matrix = excluded.matrix, generated_at = excluded.generated_at`,
		id, string(doc), formatTime(generatedAt))
	if err != nil {
		return fmt.Errorf("upsert job matrix: %w", err)
	}
	return nil
}

// PutJob inserts or updates a job posting and, when present, its matrix.
func (s *Store) PutJob(ctx context.Context, j store.Job) error {
	mustHave, err := json.Marshal(nonNil(j.MustHave))
	if err != nil {
		return fmt.Errorf("marshal must-have: %w", err)
	}
	niceToHave, err := json.Marshal(nonNil(j.NiceToHave))
	if err != nil {
		return fmt.Errorf("marshal nice-to-have: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, title, description, must_have, nice_to_have, min_years_experience,
			seniority_level, location_type, country, published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title,
			description = excluded.description,
			must_have = excluded.must_have,
			nice_to_have = excluded.nice_to_have,
			min_years_experience = excluded.min_years_experience,
			seniority_level = excluded.seniority_level,
			location_type = excluded.location_type,
			country = excluded.country,
			published = excluded.published`,
		j.ID, j.Title, j.Description, string(mustHave), string(niceToHave), j.MinYears,
		j.Seniority, j.LocationType, j.Country, j.Published)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	if j.Matrix != nil {
		return s.SaveJobMatrix(ctx, j.ID, j.Matrix, time.Now())
	}
	return nil
}

func (s *Store) scanJob(row scanner) (*store.Job, error) {
	var (
		j                    store.Job
		mustHave, niceToHave string
		doc                  sql.NullString
	)
	err := row.Scan(&j.ID, &j.Title, &j.Description, &mustHave, &niceToHave, &j.MinYears,
		&j.Seniority, &j.LocationType, &j.Country, &j.Published, &doc)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mustHave), &j.MustHave); err != nil {
		return nil, fmt.Errorf("unmarshal must-have: %w", err)
	}
	if err := json.Unmarshal([]byte(niceToHave), &j.NiceToHave); err != nil {
		return nil, fmt.Errorf("unmarshal nice-to-have: %w", err)
	}
	j.MustHave, j.NiceToHave = nonNil(j.MustHave), nonNil(j.NiceToHave)
	if doc.Valid {
		j.Matrix = store.DecodeJobMatrix(s.logger, j.ID, []byte(doc.String))
	}
	return &j, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
