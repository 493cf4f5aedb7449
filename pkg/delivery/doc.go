// Package delivery routes events to channel schedulers and turns flushed
// batches into rendered channel messages.
//
// A Dispatcher schedules one Job per eligible channel under the key
// (recipient, channel, topic). Jobs that share a key within the digest window
// are flushed together to that channel's FlushHandler, which checks the app's
// integration status, renders the batch with the channel template and calls
// the transport. The handler's Outcome drives the scheduler's retry policy:
//
//	handler := delivery.NewFlushHandler(emailChannel, bundle,
//		delivery.WithIntegration(tracker, "postmark"),
//		delivery.WithCache(cache),
//	)
//	sched, _ := scheduler.New[delivery.Job](handler, scheduler.WithName(channel.Email))
//
//	d := delivery.NewDispatcher(delivery.WithScheduler(channel.Email, sched))
//	d.Dispatch(ctx, event, delivery.RecipientFromUser(user))
package delivery
