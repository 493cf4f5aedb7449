package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/redis/go-redis/v9"
)

// UpdateFunc computes the next record from the current one. found is false
// when nothing is stored yet.
type UpdateFunc func(current Record, found bool) (Record, error)

// Store persists integration records. Update must apply fn atomically with
// respect to other updates of the same record.
type Store interface {
	Get(ctx context.Context, appID, integrationID string) (Record, bool, error)
	Update(ctx context.Context, appID, integrationID string, fn UpdateFunc) (Record, error)
	List(ctx context.Context, appID string) (map[string]Record, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, appID, integrationID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[appID][integrationID]
	return rec, ok, nil
}

// Update applies fn to the current record under one lock.
func (s *MemoryStore) Update(_ context.Context, appID, integrationID string, fn UpdateFunc) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[appID][integrationID]
	next, err := fn(cur, ok)
	if err != nil {
		return Record{}, err
	}
	if s.records[appID] == nil {
		s.records[appID] = make(map[string]Record)
	}
	s.records[appID][integrationID] = next
	return next, nil
}

func (s *MemoryStore) List(_ context.Context, appID string) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records[appID]), nil
}

// RedisStore keeps one hash per app, field per integration, JSON values.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

// NewRedisStore creates a store with keys "<prefix>:<appID>". An empty
// prefix defaults to "notifykit:integrations".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "notifykit:integrations"
	}
	return &RedisStore{client: client, prefix: prefix, maxRetries: 10}
}

func (s *RedisStore) key(appID string) string {
	return s.prefix + ":" + appID
}

func (s *RedisStore) Get(ctx context.Context, appID, integrationID string) (Record, bool, error) {
	raw, err := s.client.HGet(ctx, s.key(appID), integrationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode integration record: %w", err)
	}
	return rec, true, nil
}

// Update runs fn inside a WATCH transaction and retries when the hash
// changed underneath.
func (s *RedisStore) Update(ctx context.Context, appID, integrationID string, fn UpdateFunc) (Record, error) {
	key := s.key(appID)

	for range s.maxRetries {
		var next Record
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, found := Record{}, false
			raw, err := tx.HGet(ctx, key, integrationID).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if err := json.Unmarshal(raw, &cur); err != nil {
					return fmt.Errorf("decode integration record: %w", err)
				}
				found = true
			}

			next, err = fn(cur, found)
			if err != nil {
				return err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, integrationID, data)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return next, nil
	}
	return Record{}, ErrStoreConflict
}

// List returns every record of appID keyed by integration ID.
func (s *RedisStore) List(ctx context.Context, appID string) (map[string]Record, error) {
	raw, err := s.client.HGetAll(ctx, s.key(appID)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Record, len(raw))
	for id, v := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode integration record %s: %w", id, err)
		}
		out[id] = rec
	}
	return out, nil
}
