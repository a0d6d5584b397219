package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spigell/talent-matcher/internal/store"
)

// Set TALENT_MATCHER_TEST_DATABASE_URL to a disposable database to run these tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TALENT_MATCHER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TALENT_MATCHER_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, url, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE matches, job_matrices, jobs, candidate_cvs, candidate_matrices, candidates`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestUpsertLastWriteWinsAndKeepsStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutCandidate(ctx, store.Candidate{ID: "c1"}); err != nil {
		t.Fatalf("put candidate: %v", err)
	}
	if err := s.PutJob(ctx, store.Job{ID: "j1", Published: true}); err != nil {
		t.Fatalf("put job: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	m, err := s.Upsert(ctx, store.MatchInput{CandidateID: "c1", JobID: "j1", Score: 70, CalculatedAt: at})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.SetStatus(ctx, m.ID, store.StatusShortlisted); err != nil {
		t.Fatalf("shortlist: %v", err)
	}

	updated, err := s.Upsert(ctx, store.MatchInput{CandidateID: "c1", JobID: "j1", Score: 55, CalculatedAt: at.Add(time.Second)})
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if updated.ID != m.ID || updated.Score != 55 || updated.Status != store.StatusShortlisted {
		t.Fatalf("unexpected record after rescore: %+v", updated)
	}

	stale, err := s.Upsert(ctx, store.MatchInput{CandidateID: "c1", JobID: "j1", Score: 1, CalculatedAt: at})
	if err != nil {
		t.Fatalf("stale upsert: %v", err)
	}
	if stale.Score != 55 {
		t.Fatalf("expected newer score to win, got %d", stale.Score)
	}

	list, err := s.ListForJob(ctx, "j1", 30)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one match, got %d", len(list))
	}
}
