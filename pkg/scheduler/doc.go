// Package scheduler batches deferred work per key and hands each batch to a
// handler, at most one batch per key at a time.
//
// Jobs scheduled under the same key while a window is open are delivered to
// the handler together, in the order they were scheduled. Two window policies
// exist:
//
//   - PolicyFixed: the first job opens the window and later jobs ride along
//     without moving the deadline.
//   - PolicySliding: every job pushes the deadline out, capped by MaxWindow
//     from the moment the window opened.
//
// WithMaxBatchSize flushes as soon as a bucket holds that many jobs.
//
// A handler reports an Outcome. Completed ends the batch. Retry puts it back
// at the front of its bucket with a backoff delay; once MaxRetries retries
// have been spent the next Retry becomes a terminal failure, so a handler
// that always retries runs exactly MaxRetries+1 times. Failed is terminal
// immediately. Terminal failures go to the configured FailureRecorder.
//
// Keys flush in parallel up to WithMaxConcurrentFlushes, while a key that is
// flushing never starts a second flush: jobs arriving meanwhile wait for the
// next window.
//
// Basic usage:
//
//	s, err := scheduler.New(scheduler.HandlerFunc[Event](func(ctx context.Context, key string, batch []Event) scheduler.Outcome {
//	    if err := deliver(ctx, batch); err != nil {
//	        return scheduler.Retry(0).WithCause(err)
//	    }
//	    return scheduler.Completed()
//	}), scheduler.WithPolicy(scheduler.PolicySliding), scheduler.WithMaxWindow(time.Hour))
//
//	g.Go(s.Run(ctx))
//	_ = s.Schedule(ctx, "user-1|email|comments", ev, 15*time.Minute)
//
// On Stop the scheduler waits for running flushes and then either saves the
// jobs still waiting to Storage (ShutdownPersist) or drops them with a
// warning (ShutdownDrop). Start loads saved jobs back.
package scheduler
