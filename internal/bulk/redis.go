package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "talent-matcher:bulk:"
	redisIndexKey  = "talent-matcher:bulk-index"
	redisCancelKey = "talent-matcher:bulk-cancel:"

	// DefaultStatusTTL is how long finished status records are kept.
	DefaultStatusTTL = 7 * 24 * time.Hour
)

// RedisStore keeps status records in Redis so that every instance sees the same state,
// including cancellation requests.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bulk job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal bulk job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisStore) Set(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal bulk job %s: %w", job.ID, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+job.ID, data, s.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(job.StartedAt.UnixNano()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store bulk job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Job, error) {
	ids, err := s.rdb.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list bulk jobs: %w", err)
	}
	if len(ids) == 0 {
		return []*Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load bulk jobs: %w", err)
	}

	out := make([]*Job, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("unmarshal bulk job %s: %w", ids[i], err)
		}
		out = append(out, &job)
	}

	if len(expired) > 0 {
		// Records expire on their own; the index needs pruning.
		_ = s.rdb.ZRem(ctx, redisIndexKey, expired...).Err()
	}
	return out, nil
}

func (s *RedisStore) RequestCancel(ctx context.Context, id string) error {
	if err := s.rdb.Set(ctx, redisCancelKey+id, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("request cancellation of bulk job %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) CancelRequested(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, redisCancelKey+id).Result()
	if err != nil {
		return false, fmt.Errorf("check cancellation of bulk job %s: %w", id, err)
	}
	return n > 0, nil
}
