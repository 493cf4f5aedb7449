package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Storage keeps jobs across restarts. Load returns the saved jobs in the
// order they were saved and removes them from the storage.
type Storage[T any] interface {
	Save(ctx context.Context, jobs []Job[T]) error
	Load(ctx context.Context) ([]Job[T], error)
}

// MemoryStorage keeps jobs in memory. It survives a Stop/Start cycle of a
// scheduler within one process.
type MemoryStorage[T any] struct {
	mu   sync.Mutex
	jobs []Job[T]
}

// NewMemoryStorage creates an empty memory storage.
func NewMemoryStorage[T any]() *MemoryStorage[T] {
	return &MemoryStorage[T]{}
}

// Save appends jobs to the stored ones.
func (s *MemoryStorage[T]) Save(_ context.Context, jobs []Job[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, jobs...)
	return nil
}

// Load returns the stored jobs and clears them.
func (s *MemoryStorage[T]) Load(_ context.Context) ([]Job[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := slices.Clone(s.jobs)
	s.jobs = nil
	return jobs, nil
}

// Len returns the number of saved jobs.
func (s *MemoryStorage[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// RedisStorage keeps jobs as JSON entries of a Redis list.
type RedisStorage[T any] struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStorage creates a storage for the scheduler called name.
func NewRedisStorage[T any](client redis.UniversalClient, name string) *RedisStorage[T] {
	return &RedisStorage[T]{client: client, key: "notifykit:scheduler:" + name + ":pending"}
}

// Key returns the Redis list key.
func (s *RedisStorage[T]) Key() string {
	return s.key
}

// Save appends jobs to the list under the storage key.
func (s *RedisStorage[T]) Save(ctx context.Context, jobs []Job[T]) error {
	if len(jobs) == 0 {
		return nil
	}

	values := make([]any, 0, len(jobs))
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", job.ID, err)
		}
		values = append(values, data)
	}

	return s.client.RPush(ctx, s.key, values...).Err()
}

func (s *RedisStorage[T]) Load(ctx context.Context) ([]Job[T], error) {
	var rng *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rng = pipe.LRange(ctx, s.key, 0, -1)
		pipe.Del(ctx, s.key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw := rng.Val()
	jobs := make([]Job[T], 0, len(raw))
	for _, r := range raw {
		var job Job[T]
		if err := json.Unmarshal([]byte(r), &job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
