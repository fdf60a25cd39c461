package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

// MemoryStore keeps jobs in process. Used when no Redis URL is configured.
type MemoryStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu   sync.Mutex
	jobs map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	job     entity.ParseJob
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, clock: time.Now, jobs: map[uuid.UUID]memoryEntry{}}
}

func (s *MemoryStore) Save(_ context.Context, job entity.ParseJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for id, e := range s.jobs {
		if s.ttl > 0 && now.After(e.expires) {
			delete(s.jobs, id)
		}
	}
	s.jobs[job.ID] = memoryEntry{job: job, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (entity.ParseJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok || (s.ttl > 0 && s.clock().After(e.expires)) {
		return entity.ParseJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return e.job, nil
}

// RedisStore keeps job status as JSON under prefix+id so any replica can
// answer a poll.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore parses a redis:// URL.
func NewRedisStore(url, prefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), prefix, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(id uuid.UUID) string { return s.prefix + id.String() }

func (s *RedisStore) Save(ctx context.Context, job entity.ParseJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return s.client.Set(ctx, s.key(job.ID), b, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (entity.ParseJob, error) {
	b, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.ParseJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return entity.ParseJob{}, err
	}
	var job entity.ParseJob
	if err := json.Unmarshal(b, &job); err != nil {
		return entity.ParseJob{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// NewJobStore picks Redis when cfg names a URL and memory otherwise. The
// returned closer is never nil.
func NewJobStore(ctx context.Context, cfg common.JobsConfig, logger *slog.Logger) (JobStore, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL == "" {
		logger.Info("job store: memory", "ttl", cfg.ResultTTL)
		return NewMemoryStore(cfg.ResultTTL), func() error { return nil }, nil
	}
	rs, err := NewRedisStore(cfg.RedisURL, cfg.KeyPrefix, cfg.ResultTTL)
	if err != nil {
		return nil, nil, err
	}
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("job store: redis", "prefix", cfg.KeyPrefix, "ttl", cfg.ResultTTL)
	return rs, rs.Close, nil
}
