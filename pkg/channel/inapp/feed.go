package inapp

import (
	"context"
	"sync"
)

// feed fans notifications out to live per-user subscribers without blocking.
type feed struct {
	mu         sync.RWMutex
	subs       map[string]map[chan Notification]struct{}
	bufferSize int
}

func newFeed(bufferSize int) *feed {
	return &feed{
		subs:       make(map[string]map[chan Notification]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

func (f *feed) subscribe(ctx context.Context, userID string) (<-chan Notification, func()) {
	ch := make(chan Notification, f.bufferSize)

	f.mu.Lock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[chan Notification]struct{})
	}
	f.subs[userID][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { f.remove(userID, ch) })
	}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return ch, cancel
}

// publish returns the number of subscribers reached. Subscribers with a full
// buffer are removed.
func (f *feed) publish(n Notification) int {
	f.mu.RLock()
	var slow []chan Notification
	delivered := 0
	for ch := range f.subs[n.UserID] {
		select {
		case ch <- n:
			delivered++
		default:
			slow = append(slow, ch)
		}
	}
	f.mu.RUnlock()

	for _, ch := range slow {
		f.remove(n.UserID, ch)
	}
	return delivered
}

func (f *feed) remove(userID string, ch chan Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.subs[userID]
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(f.subs, userID)
	}
}
