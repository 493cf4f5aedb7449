package scheduler

import "time"

// Observer receives flush lifecycle events. Calls happen outside the
// scheduler lock and must not block.
type Observer interface {
	JobScheduled(scheduler string)
	FlushStarted(scheduler string, size int)
	FlushCompleted(scheduler string, size int, elapsed time.Duration)
	FlushRetried(scheduler string, size, attempt int, delay time.Duration)
	FlushFailed(scheduler string, size int, err error)
	JobsDropped(scheduler string, n int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) JobScheduled(string)                          {}
func (NopObserver) FlushStarted(string, int)                     {}
func (NopObserver) FlushCompleted(string, int, time.Duration)    {}
func (NopObserver) FlushRetried(string, int, int, time.Duration) {}
func (NopObserver) FlushFailed(string, int, error)               {}
func (NopObserver) JobsDropped(string, int)                      {}
