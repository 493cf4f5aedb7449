package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

type digest struct {
	UserID string `json:"user_id"`
	Topic  string `json:"topic"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, client := newRedis(t)
	storage := scheduler.NewRedisStorage[digest](client, "email")
	assert.Equal(t, "notifykit:scheduler:email:pending", storage.Key())

	now := time.Now().UTC().Truncate(time.Second)
	jobs := []scheduler.Job[digest]{
		{ID: "1", Key: "u1|email|news", Payload: digest{UserID: "u1", Topic: "news"}, NotBefore: now, EnqueuedAt: now},
		{ID: "2", Key: "u1|email|news", Payload: digest{UserID: "u1", Topic: "news"}, NotBefore: now, RetryCount: 2},
	}
	require.NoError(t, storage.Save(ctx, jobs))
	require.NoError(t, storage.Save(ctx, nil))
	assert.True(t, mr.Exists(storage.Key()))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "1", loaded[0].ID)
	assert.Equal(t, digest{UserID: "u1", Topic: "news"}, loaded[0].Payload)
	assert.True(t, now.Equal(loaded[0].NotBefore))
	assert.Equal(t, 2, loaded[1].RetryCount)

	assert.False(t, mr.Exists(storage.Key()))
	loaded, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRedisStorage_CorruptEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, client := newRedis(t)
	storage := scheduler.NewRedisStorage[digest](client, "sms")

	_, err := mr.Push(storage.Key(), "{not json")
	require.NoError(t, err)

	_, err = storage.Load(ctx)
	assert.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := scheduler.NewMemoryStorage[int]()
	require.NoError(t, storage.Save(ctx, []scheduler.Job[int]{{ID: "a"}, {ID: "b"}}))
	assert.Equal(t, 2, storage.Len())

	jobs, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Zero(t, storage.Len())
}

func TestStop_PersistToRedis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, client := newRedis(t)
	storage := scheduler.NewRedisStorage[digest](client, "push")

	s, err := scheduler.New[digest](&noopHandler{},
		scheduler.WithName("push"),
		scheduler.WithStorage[digest](storage),
		scheduler.WithShutdownPolicy(scheduler.ShutdownPersist),
	)
	require.NoError(t, err)

	require.NoError(t, s.Schedule(ctx, "u1|mobile_push|news", digest{UserID: "u1", Topic: "news"}, time.Hour))
	require.NoError(t, s.Stop(ctx))

	n, err := client.LLen(ctx, storage.Key()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, string, []digest) scheduler.Outcome {
	return scheduler.Completed()
}

func TestFailureLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := scheduler.NewFailureLog(2)
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, log.RecordFailure(ctx, scheduler.Failure{Key: key}))
	}

	assert.Equal(t, 2, log.Len())
	keys := []string{}
	for _, f := range log.List() {
		keys = append(keys, f.Key)
	}
	assert.ElementsMatch(t, []string{"b", "c"}, keys)
}

func TestRedisFailureLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, client := newRedis(t)
	log := scheduler.NewRedisFailureLog(client, "notifykit:failures", 2)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, log.RecordFailure(ctx, scheduler.Failure{
			Scheduler: "email",
			Key:       key,
			JobIDs:    []string{key + "-1"},
			Attempts:  3,
			Error:     "provider unavailable",
			Err:       errors.New("provider unavailable"),
		}))
	}

	n, err := client.LLen(ctx, "notifykit:failures").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	failures, err := log.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "c", failures[0].Key)
	assert.Equal(t, "b", failures[1].Key)
	assert.Equal(t, "provider unavailable", failures[0].Error)
	assert.Nil(t, failures[0].Err)
}
