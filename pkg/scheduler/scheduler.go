package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// State is the lifecycle stage of one key's bucket.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateFlushing
)

// String returns the lowercase name of s.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

type bucket[T any] struct {
	pending []Job[T]
	// opened is when the current window started; used by the sliding cap.
	opened time.Time
	// notBefore holds back a retried batch until its backoff elapsed.
	notBefore time.Time
	timer     *time.Timer
	gen       uint64
	flushing  bool
}

// Scheduler batches jobs of payload type T per key.
type Scheduler[T any] struct {
	handler Handler[T]
	opts    options
	storage Storage[T]

	mu       sync.Mutex
	buckets  map[string]*bucket[T]
	started  bool
	stopping bool
	baseCtx  context.Context

	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a scheduler delivering batches to handler.
func New[T any](handler Handler[T], opts ...Option) (*Scheduler[T], error) {
	if handler == nil {
		return nil, ErrHandlerNil
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var storage Storage[T]
	if o.storage != nil {
		st, ok := o.storage.(Storage[T])
		if !ok {
			return nil, ErrStorageType
		}
		storage = st
	}
	if o.shutdownPolicy == ShutdownPersist && storage == nil {
		return nil, ErrStorageRequired
	}

	return &Scheduler[T]{
		handler: handler,
		opts:    o,
		storage: storage,
		buckets: make(map[string]*bucket[T]),
		baseCtx: context.Background(),
		sem:     make(chan struct{}, o.maxConcurrentFlushes),
	}, nil
}

// Name returns the scheduler name.
func (s *Scheduler[T]) Name() string {
	return s.opts.name
}

// Schedule adds payload to the bucket for key. delay is how long the job may
// wait for companions; zero asks for the earliest flush the window allows.
// Schedule never waits for a flush.
func (s *Scheduler[T]) Schedule(ctx context.Context, key string, payload T, delay time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	now := s.opts.now()
	job := Job[T]{
		ID:         uuid.NewString(),
		Key:        key,
		Payload:    payload,
		NotBefore:  now.Add(max(delay, 0)),
		EnqueuedAt: now,
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	s.add(job, now)
	size := len(s.buckets[key].pending)
	s.mu.Unlock()

	s.opts.observer.JobScheduled(s.opts.name)
	s.opts.logger.LogAttrs(ctx, slog.LevelDebug, "job scheduled",
		logger.Component("scheduler"),
		slog.String("scheduler", s.opts.name),
		logger.JobKey(key),
		logger.JobID(job.ID),
		logger.BatchSize(size),
	)
	return nil
}

// add appends job to its bucket and re-arms the timer. Caller holds s.mu.
func (s *Scheduler[T]) add(job Job[T], now time.Time) {
	b, ok := s.buckets[job.Key]
	if !ok {
		b = &bucket[T]{}
		s.buckets[job.Key] = b
	}
	if len(b.pending) == 0 {
		b.opened = now
	}
	b.pending = append(b.pending, job)
	s.arm(job.Key, b, now)
}

// deadline returns when the bucket's pending jobs are due.
func (s *Scheduler[T]) deadline(b *bucket[T], now time.Time) time.Time {
	var at time.Time
	switch s.opts.policy {
	case PolicySliding:
		at = b.pending[len(b.pending)-1].NotBefore
		if s.opts.maxWindow > 0 {
			if limit := b.opened.Add(s.opts.maxWindow); at.After(limit) {
				at = limit
			}
		}
	default:
		at = b.pending[0].NotBefore
	}

	if s.opts.maxBatchSize > 0 && len(b.pending) >= s.opts.maxBatchSize {
		at = now
	}
	if at.Before(b.notBefore) {
		at = b.notBefore
	}
	return at
}

// arm (re)starts the bucket timer. A bucket that is flushing is re-armed when
// the flush settles. Caller holds s.mu.
func (s *Scheduler[T]) arm(key string, b *bucket[T], now time.Time) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 || b.flushing || s.stopping {
		return
	}

	b.gen++
	gen := b.gen
	wait := max(s.deadline(b, now).Sub(now), 0)
	b.timer = time.AfterFunc(wait, func() { s.fire(key, gen) })
}

// fire runs when a bucket timer expires.
func (s *Scheduler[T]) fire(key string, gen uint64) {
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok || b.gen != gen || b.flushing || len(b.pending) == 0 || s.stopping {
		s.mu.Unlock()
		return
	}

	n := len(b.pending)
	if s.opts.maxBatchSize > 0 && n > s.opts.maxBatchSize {
		n = s.opts.maxBatchSize
	}
	batch := slices.Clone(b.pending[:n])
	b.pending = slices.Clone(b.pending[n:])
	b.flushing = true
	b.timer = nil
	b.notBefore = time.Time{}
	if len(b.pending) > 0 {
		b.opened = s.opts.now()
	}

	s.wg.Add(1)
	ctx := s.baseCtx
	s.mu.Unlock()
	defer s.wg.Done()

	s.sem <- struct{}{}
	outcome, elapsed := s.invoke(ctx, key, batch)
	<-s.sem

	s.settle(ctx, key, batch, outcome, elapsed)
}

// invoke calls the handler, converting a panic into a terminal failure.
func (s *Scheduler[T]) invoke(ctx context.Context, key string, batch []Job[T]) (out Outcome, elapsed time.Duration) {
	payloads := make([]T, len(batch))
	for i, job := range batch {
		payloads[i] = job.Payload
	}

	s.opts.observer.FlushStarted(s.opts.name, len(batch))
	start := time.Now()

	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			out = Failed(fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.flushTimeout)
	defer cancel()

	out = s.handler.Handle(ctx, key, payloads)
	for i := range batch {
		batch[i].Payload = payloads[i]
	}
	return out, 0
}

// settle applies a flush outcome to the bucket. Retries are counted per job:
// on Retry every job spends one attempt of its own budget, jobs with budget
// left go back to the front of the bucket and exhausted jobs fail.
func (s *Scheduler[T]) settle(ctx context.Context, key string, batch []Job[T], out Outcome, elapsed time.Duration) {
	attempt := 0
	for _, job := range batch {
		attempt = max(attempt, job.RetryCount)
	}

	var (
		failed    []Job[T]
		retried   []Job[T]
		failure   error
		retryWait time.Duration
	)

	s.mu.Lock()
	b := s.buckets[key]
	b.flushing = false
	now := s.opts.now()

	switch out.kind {
	case OutcomeCompleted:
	case OutcomeRetry:
		for _, job := range batch {
			if job.RetryCount >= s.opts.maxRetries {
				failed = append(failed, job)
				continue
			}
			job.RetryCount++
			retried = append(retried, job)
		}
		if len(failed) > 0 {
			failure = ErrMaxRetriesExceeded
			if out.err != nil {
				failure = errors.Join(ErrMaxRetriesExceeded, out.err)
			}
		}
		if len(retried) == 0 {
			break
		}

		next := 0
		for _, job := range retried {
			next = max(next, job.RetryCount)
		}
		retryWait = max(out.after, s.opts.backoff.NextInterval(next))
		notBefore := now.Add(retryWait)
		for i := range retried {
			retried[i].NotBefore = notBefore
		}
		b.pending = append(retried, b.pending...)
		b.notBefore = notBefore
		b.opened = now
	default:
		failed = batch
		failure = out.err
		if failure == nil {
			failure = errors.New("handler reported failure")
		}
	}

	if len(b.pending) == 0 {
		delete(s.buckets, key)
	} else {
		s.arm(key, b, now)
	}
	s.mu.Unlock()

	attrs := []slog.Attr{
		logger.Component("scheduler"),
		slog.String("scheduler", s.opts.name),
		logger.JobKey(key),
		logger.BatchSize(len(batch)),
		logger.RetryCount(attempt),
		logger.Duration(elapsed),
	}

	if out.kind == OutcomeCompleted {
		s.opts.observer.FlushCompleted(s.opts.name, len(batch), elapsed)
		s.opts.logger.LogAttrs(ctx, slog.LevelDebug, "batch delivered", attrs...)
		return
	}
	if len(retried) > 0 {
		s.opts.observer.FlushRetried(s.opts.name, len(retried), attempt+1, retryWait)
		s.opts.logger.LogAttrs(ctx, slog.LevelInfo, "batch scheduled for retry",
			append(attrs, slog.Int("retried", len(retried)), slog.Duration("retry_in", retryWait), logger.Error(out.err))...)
	}
	if len(failed) > 0 {
		attempts := 0
		for _, job := range failed {
			attempts = max(attempts, job.RetryCount+1)
		}
		s.fail(ctx, key, failed, attempts, failure, attrs)
	}
}

func (s *Scheduler[T]) fail(ctx context.Context, key string, batch []Job[T], attempts int, err error, attrs []slog.Attr) {
	s.opts.observer.FlushFailed(s.opts.name, len(batch), err)
	s.opts.logger.LogAttrs(ctx, slog.LevelError, "batch failed", append(attrs, logger.Error(err))...)

	if s.opts.failures == nil {
		return
	}

	ids := make([]string, len(batch))
	for i, job := range batch {
		ids[i] = job.ID
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rerr := s.opts.failures.RecordFailure(rctx, Failure{
		Scheduler: s.opts.name,
		Key:       key,
		JobIDs:    ids,
		Attempts:  attempts,
		Error:     err.Error(),
		FailedAt:  s.opts.now(),
		Err:       err,
	}); rerr != nil {
		s.opts.logger.LogAttrs(ctx, slog.LevelError, "failed to record batch failure",
			append(attrs, logger.Error(rerr))...)
	}
}

// Start restores jobs saved by a previous Stop. Schedule works without
// Start; Start only matters for restoring and for the handler base context.
func (s *Scheduler[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if s.storage == nil {
		return nil
	}

	jobs, err := s.storage.Load(ctx)
	if err != nil {
		return errors.Join(ErrRestoreFailed, err)
	}
	if len(jobs) == 0 {
		return nil
	}

	s.mu.Lock()
	now := s.opts.now()
	for _, job := range jobs {
		b, ok := s.buckets[job.Key]
		if !ok {
			b = &bucket[T]{opened: now}
			s.buckets[job.Key] = b
		}
		if job.RetryCount > 0 && job.NotBefore.After(b.notBefore) {
			b.notBefore = job.NotBefore
		}
		b.pending = append(b.pending, job)
	}
	for key, b := range s.buckets {
		s.arm(key, b, now)
	}
	s.mu.Unlock()

	s.opts.logger.LogAttrs(ctx, slog.LevelInfo, "restored pending jobs",
		logger.Component("scheduler"),
		slog.String("scheduler", s.opts.name),
		slog.Int("jobs", len(jobs)),
	)
	return nil
}

// Stop stops accepting jobs, waits for running flushes and then applies the
// shutdown policy to the jobs still waiting. Running handlers are not
// interrupted; if ctx expires first Stop returns ErrShutdownTimeout.
func (s *Scheduler[T]) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	s.stopping = true
	for _, b := range s.buckets {
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(ErrShutdownTimeout, ctx.Err())
	}

	s.mu.Lock()
	var jobs []Job[T]
	for _, key := range slices.Sorted(maps.Keys(s.buckets)) {
		jobs = append(jobs, s.buckets[key].pending...)
	}
	clear(s.buckets)
	s.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	attrs := []slog.Attr{
		logger.Component("scheduler"),
		slog.String("scheduler", s.opts.name),
		slog.Int("jobs", len(jobs)),
	}

	if s.opts.shutdownPolicy == ShutdownPersist {
		if err := s.storage.Save(ctx, jobs); err != nil {
			s.opts.logger.LogAttrs(ctx, slog.LevelError, "failed to persist pending jobs", append(attrs, logger.Error(err))...)
			return errors.Join(ErrPersistFailed, err)
		}
		s.opts.logger.LogAttrs(ctx, slog.LevelInfo, "persisted pending jobs", attrs...)
		return nil
	}

	s.opts.observer.JobsDropped(s.opts.name, len(jobs))
	s.opts.logger.LogAttrs(ctx, slog.LevelWarn, "dropped pending jobs on shutdown", attrs...)
	return nil
}

// Run returns a function for errgroup that starts the scheduler, blocks
// until ctx is done and then stops it within shutdownTimeout.
func (s *Scheduler[T]) Run(ctx context.Context, shutdownTimeout time.Duration) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	}
}

// State reports the bucket state for key.
func (s *Scheduler[T]) State(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	switch {
	case !ok:
		return StateIdle
	case b.flushing:
		return StateFlushing
	case len(b.pending) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// Pending returns how many jobs wait in the bucket for key, excluding a batch
// that is currently flushing.
func (s *Scheduler[T]) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[key]; ok {
		return len(b.pending)
	}
	return 0
}
