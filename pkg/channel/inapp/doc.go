// Package inapp stores digests in a per-user inbox and pushes them to live
// subscribers, for example an SSE endpoint behind the SDK widget.
//
//	inbox := inapp.New(inapp.NewMemoryStorage())
//	events, unsubscribe := inbox.Subscribe(ctx, userID)
//	defer unsubscribe()
//
// Slow subscribers are dropped instead of blocking delivery; the inbox stays
// the source of truth.
package inapp
