// Package redis opens the Redis connection shared by the scheduler
// persistence, the scheduler failure log and the integration status store.
//
//	client, err := redis.Connect(ctx, cfg, redis.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Connect retries until the server answers PING or the connect timeout
// elapses. Healthcheck adapts a client to the ops server's readiness probe.
package redis
