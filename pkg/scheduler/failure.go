package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Failure describes a batch that will not be attempted again.
type Failure struct {
	Scheduler string    `json:"scheduler"`
	Key       string    `json:"key"`
	JobIDs    []string  `json:"job_ids"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`

	Err error `json:"-"`
}

// FailureRecorder stores terminal failures for later inspection.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, f Failure) error
}

// FailureLog keeps the most recent failures in memory.
type FailureLog struct {
	mu       sync.RWMutex
	entries  []Failure
	capacity int
}

// NewFailureLog creates a log holding at most capacity entries (default 1000).
func NewFailureLog(capacity int) *FailureLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &FailureLog{capacity: capacity}
}

// RecordFailure appends f, evicting the oldest entry when the log is full.
func (l *FailureLog) RecordFailure(_ context.Context, f Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.capacity {
		l.entries = slices.Delete(l.entries, 0, 1)
	}
	l.entries = append(l.entries, f)
	return nil
}

// List returns the recorded failures, oldest first.
func (l *FailureLog) List() []Failure {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Len returns the number of recorded failures.
func (l *FailureLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// RedisFailureLog keeps the most recent failures in a capped Redis list.
type RedisFailureLog struct {
	client   redis.UniversalClient
	key      string
	capacity int64
}

// NewRedisFailureLog creates a log stored under key.
func NewRedisFailureLog(client redis.UniversalClient, key string, capacity int64) *RedisFailureLog {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RedisFailureLog{client: client, key: key, capacity: capacity}
}

// RecordFailure pushes f and trims the list to its size.
func (l *RedisFailureLog) RecordFailure(ctx context.Context, f Failure) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal failure: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, l.key, data)
		pipe.LTrim(ctx, l.key, 0, l.capacity-1)
		return nil
	})
	return err
}

// List returns up to limit failures, newest first.
func (l *RedisFailureLog) List(ctx context.Context, limit int64) ([]Failure, error) {
	if limit <= 0 {
		limit = l.capacity
	}
	raw, err := l.client.LRange(ctx, l.key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Failure, 0, len(raw))
	for _, r := range raw {
		var f Failure
		if err := json.Unmarshal([]byte(r), &f); err != nil {
			return nil, fmt.Errorf("unmarshal failure: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}
