package bulk

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spigell/talent-matcher/internal/events"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("TALENT_MATCHER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TALENT_MATCHER_TEST_REDIS_URL is not set")
	}

	rdb, err := events.NewRedisClient(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	older := &Job{ID: "test-older", Type: TypeRerunMatching, Status: StatusCompleted, StartedAt: time.Now().Add(-time.Hour)}
	newer := &Job{
		ID:        "test-newer",
		Type:      TypeRegenerateMatrices,
		Status:    StatusRunning,
		Errors:    []ItemError{{CandidateID: "c1", Error: "no cv"}},
		StartedAt: time.Now(),
	}
	t.Cleanup(func() {
		_ = s.rdb.Del(ctx, redisKeyPrefix+older.ID, redisKeyPrefix+newer.ID).Err()
		_ = s.rdb.ZRem(ctx, redisIndexKey, older.ID, newer.ID).Err()
	})

	for _, job := range []*Job{older, newer} {
		if err := s.Set(ctx, job); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	got, err := s.Get(ctx, newer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusRunning || len(got.Errors) != 1 || got.Errors[0].CandidateID != "c1" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := s.Get(ctx, "test-missing"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var order []string
	for _, j := range jobs {
		if j.ID == older.ID || j.ID == newer.ID {
			order = append(order, j.ID)
		}
	}
	if len(order) != 2 || order[0] != newer.ID {
		t.Fatalf("expected newest first, got %v", order)
	}
}

func TestRedisStoreCancelMarkerSurvivesSet(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	job := &Job{ID: "test-cancel", Type: TypeRerunMatching, Status: StatusRunning, StartedAt: time.Now()}
	t.Cleanup(func() {
		_ = s.rdb.Del(ctx, redisKeyPrefix+job.ID, redisCancelKey+job.ID).Err()
		_ = s.rdb.ZRem(ctx, redisIndexKey, job.ID).Err()
	})

	if requested, err := s.CancelRequested(ctx, job.ID); err != nil || requested {
		t.Fatalf("expected no marker, got %v %v", requested, err)
	}
	if err := s.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("request cancel: %v", err)
	}
	if err := s.Set(ctx, job); err != nil {
		t.Fatalf("set: %v", err)
	}
	if requested, err := s.CancelRequested(ctx, job.ID); err != nil || !requested {
		t.Fatalf("expected marker to survive a write, got %v %v", requested, err)
	}
}
