// Package scheduler multiplexes concurrent transcription requests onto a
// bounded pool of acoustic inference slots.
//
// Admission is non-blocking: when the queue is full the request is rejected
// immediately with [ErrQueueFull] instead of stalling the caller. Requests
// whose context expires while queued are dropped at pickup without spending
// an inference slot.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietspeak/vietspeak/pkg/acoustic"
	"github.com/vietspeak/vietspeak/pkg/audio"
)

var (
	// ErrQueueFull is returned when the pending queue has no room for
	// another request.
	ErrQueueFull = errors.New("scheduler: inference queue full")

	// ErrClosed is returned for requests submitted after Close.
	ErrClosed = errors.New("scheduler: closed")
)

// Monitor receives scheduler lifecycle events. Implementations must be
// goroutine-safe.
type Monitor interface {
	Enqueued()
	Dequeued()
	Rejected()
	InferenceStarted()
	InferenceFinished(d time.Duration, err error)
}

type nopMonitor struct{}

func (nopMonitor) Enqueued()                              {}
func (nopMonitor) Dequeued()                              {}
func (nopMonitor) Rejected()                              {}
func (nopMonitor) InferenceStarted()                      {}
func (nopMonitor) InferenceFinished(time.Duration, error) {}

type outcome struct {
	obs *acoustic.Observation
	err error
}

type task struct {
	id   string
	ctx  context.Context
	clip audio.Clip
	done chan outcome
}

// Option is a functional option for configuring a [Scheduler].
type Option func(*Scheduler)

// WithSlots sets the number of concurrent inference workers.
func WithSlots(n int) Option {
	return func(s *Scheduler) { s.slots = n }
}

// WithQueueDepth sets the number of requests that may wait for a slot.
func WithQueueDepth(n int) Option {
	return func(s *Scheduler) { s.queueDepth = n }
}

// WithBatchWindow enables request batching: a worker that picks up a task
// waits up to d for further queued tasks and submits them together when the
// provider implements [acoustic.BatchProvider]. Zero disables batching.
func WithBatchWindow(d time.Duration) Option {
	return func(s *Scheduler) { s.batchWindow = d }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithMonitor registers a lifecycle monitor.
func WithMonitor(m Monitor) Option {
	return func(s *Scheduler) { s.monitor = m }
}

// Scheduler owns the inference queue and worker pool. Create it with [New],
// then call [Scheduler.Start] once before submitting requests and
// [Scheduler.Close] during shutdown.
type Scheduler struct {
	provider    acoustic.Provider
	slots       int
	queueDepth  int
	batchWindow time.Duration
	log         *slog.Logger
	monitor     Monitor

	queue chan *task

	mu      sync.Mutex
	started bool
	closed  bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New creates a Scheduler for provider.
func New(provider acoustic.Provider, opts ...Option) (*Scheduler, error) {
	if provider == nil {
		return nil, errors.New("scheduler: nil provider")
	}
	s := &Scheduler{
		provider:   provider,
		slots:      2,
		queueDepth: 16,
		log:        slog.Default(),
		monitor:    nopMonitor{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.slots < 1 {
		return nil, fmt.Errorf("scheduler: slots must be >= 1, got %d", s.slots)
	}
	if s.queueDepth < 1 {
		return nil, fmt.Errorf("scheduler: queue depth must be >= 1, got %d", s.queueDepth)
	}
	if s.batchWindow < 0 {
		return nil, fmt.Errorf("scheduler: negative batch window %s", s.batchWindow)
	}
	s.queue = make(chan *task, s.queueDepth)
	return s, nil
}

// Start launches the worker pool. It must be called exactly once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < s.slots; i++ {
		worker := i
		s.group.Go(func() error {
			s.runWorker(ctx, worker)
			return nil
		})
	}
	s.log.Info("scheduler started", "slots", s.slots, "queue_depth", s.queueDepth, "batch_window", s.batchWindow)
}

// Close stops accepting new requests, lets the workers drain what is
// already queued, and waits for in-flight inferences to finish.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	close(s.queue)
	if !started {
		return nil
	}
	err := s.group.Wait()
	s.cancel()
	return err
}

// Ping reports whether the scheduler can accept work. Used by readiness
// probes; it does not touch the queue.
func (s *Scheduler) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.started {
		return errors.New("scheduler: not started")
	}
	return nil
}

// Transcribe submits clip and blocks until a result is available, the
// caller's context expires, or the queue rejects the request.
func (s *Scheduler) Transcribe(ctx context.Context, clip audio.Clip) (*acoustic.Observation, error) {
	t := &task{
		id:   uuid.NewString(),
		ctx:  ctx,
		clip: clip,
		done: make(chan outcome, 1),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	select {
	case s.queue <- t:
		s.mu.Unlock()
		s.monitor.Enqueued()
	default:
		s.mu.Unlock()
		s.monitor.Rejected()
		s.log.Warn("request rejected, queue full", "request_id", t.id)
		return nil, ErrQueueFull
	}

	select {
	case out := <-t.done:
		return out.obs, out.err
	case <-ctx.Done():
		// The worker will notice the expired context and discard the task.
		return nil, fmt.Errorf("%w: %w", acoustic.ErrTimeout, ctx.Err())
	}
}

func (s *Scheduler) runWorker(ctx context.Context, worker int) {
	batcher, batching := s.provider.(acoustic.BatchProvider)
	batching = batching && s.batchWindow > 0

	for t := range s.queue {
		s.monitor.Dequeued()
		if t.ctx.Err() != nil {
			t.done <- outcome{err: fmt.Errorf("%w: dropped while queued: %w", acoustic.ErrTimeout, t.ctx.Err())}
			continue
		}

		if batching {
			s.runBatch(ctx, worker, batcher, t)
			continue
		}
		s.runOne(worker, t)
	}
}

func (s *Scheduler) runOne(worker int, t *task) {
	start := time.Now()
	s.monitor.InferenceStarted()
	obs, err := s.provider.Transcribe(t.ctx, t.clip)
	elapsed := time.Since(start)
	s.monitor.InferenceFinished(elapsed, err)
	if err != nil {
		s.log.Error("inference failed", "request_id", t.id, "worker", worker, "duration", elapsed, "error", err)
	} else {
		s.log.Debug("inference done", "request_id", t.id, "worker", worker, "duration", elapsed)
	}
	t.done <- outcome{obs: obs, err: err}
}

// runBatch collects tasks arriving within the batch window and submits them
// in one provider call. Tasks whose context expired during the window are
// answered without being sent.
func (s *Scheduler) runBatch(ctx context.Context, worker int, batcher acoustic.BatchProvider, first *task) {
	batch := []*task{first}
	timer := time.NewTimer(s.batchWindow)
	defer timer.Stop()

collect:
	for len(batch) < cap(s.queue) {
		select {
		case t, ok := <-s.queue:
			if !ok {
				break collect
			}
			s.monitor.Dequeued()
			batch = append(batch, t)
		case <-timer.C:
			break collect
		}
	}

	live := batch[:0]
	for _, t := range batch {
		if t.ctx.Err() != nil {
			t.done <- outcome{err: fmt.Errorf("%w: dropped while queued: %w", acoustic.ErrTimeout, t.ctx.Err())}
			continue
		}
		live = append(live, t)
	}
	if len(live) == 0 {
		return
	}

	clips := make([]audio.Clip, len(live))
	for i, t := range live {
		clips[i] = t.clip
	}

	start := time.Now()
	s.monitor.InferenceStarted()
	observations, errs := batcher.TranscribeBatch(ctx, clips)
	elapsed := time.Since(start)

	var firstErr error
	for i, t := range live {
		var out outcome
		if i < len(observations) {
			out.obs = observations[i]
		}
		if i < len(errs) {
			out.err = errs[i]
		}
		if out.obs == nil && out.err == nil {
			out.err = errors.New("scheduler: provider returned no result for batched request")
		}
		if out.err != nil && firstErr == nil {
			firstErr = out.err
		}
		t.done <- out
	}
	s.monitor.InferenceFinished(elapsed, firstErr)
	s.log.Debug("batch inference done", "worker", worker, "batch_size", len(live), "duration", elapsed)
}
