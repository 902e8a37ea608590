// Package dispatch runs collaborator work off the turn path on a sharded
// executor that keeps FIFO order per user while users proceed in parallel.
//
// Callers must not Submit concurrently for the same key; per-key FIFO relies
// on that external serialisation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/metrics"
)

// ErrExecutorClosed reports that the executor has been stopped.
var ErrExecutorClosed = errors.New("dispatch executor closed")

// ErrQueueFull reports back-pressure on a shard.
var ErrQueueFull = errors.New("dispatch queue full")

// QueueFullError carries diagnostics while satisfying errors.Is(_, ErrQueueFull).
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("dispatch shard %d full (len=%d cap=%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }

// Job is a unit of work executed by an Executor.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to a Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Options tunes an Executor. Zero values take defaults.
type Options struct {
	Shards         int
	QueueSize      int
	EnqueueTimeout time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxInterval    time.Duration
	// ErrorHandler is called after a job fails for good.
	ErrorHandler func(key string, err error)
}

func (o *Options) applyDefaults() {
	if o.Shards <= 0 {
		o.Shards = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.EnqueueTimeout <= 0 {
		o.EnqueueTimeout = 100 * time.Millisecond
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 100 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 5 * time.Second
	}
}

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// Executor partitions jobs across worker goroutines by a stable hash of the key.
type Executor struct {
	opts   Options
	log    zerolog.Logger
	queues []chan queuedJob

	// mu orders Submit's send against Stop closing done, so an accepted job
	// is always in its queue before the workers start draining.
	mu     sync.RWMutex
	done   chan struct{}
	closed bool

	wg sync.WaitGroup
}

// NewExecutor starts the shard workers.
func NewExecutor(opts Options, log zerolog.Logger) *Executor {
	opts.applyDefaults()
	e := &Executor{
		opts:   opts,
		log:    log.With().Str("component", "dispatch").Logger(),
		queues: make([]chan queuedJob, opts.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < opts.Shards; i++ {
		ch := make(chan queuedJob, opts.QueueSize)
		e.queues[i] = ch
		e.wg.Add(1)
		go e.runWorker(i, ch)
	}
	return e
}

// Submit enqueues job on the shard for key. It returns ErrExecutorClosed after
// Stop, a *QueueFullError when the shard stays full for EnqueueTimeout, or
// ctx.Err() if ctx ends first.
func (e *Executor) Submit(ctx context.Context, key string, job Job) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}

	shard := e.shardFor(key)
	ch := e.queues[shard]
	timer := time.NewTimer(e.opts.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, key: key, job: job}:
		metrics.DispatchSubmissionsTotal.WithLabelValues(metrics.ShardLabel(shard)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		metrics.DispatchQueueFullTotal.WithLabelValues(metrics.ShardLabel(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before it has run.
func (e *Executor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	if err := e.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(done)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop drains every queue and waits for the workers. It is idempotent. A
// Submit in flight finishes first, bounded by EnqueueTimeout.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.log.Info().Int("shards", e.opts.Shards).Msg("Stopping dispatch executor")
	close(e.done)
	e.mu.Unlock()
	e.wg.Wait()
	e.log.Info().Msg("Dispatch executor stopped")
}

// Close lets Executor satisfy io.Closer.
func (e *Executor) Close() error {
	e.Stop()
	return nil
}

func (e *Executor) runWorker(idx int, ch <-chan queuedJob) {
	defer e.wg.Done()
	label := metrics.ShardLabel(idx)

	for {
		select {
		case qj := <-ch:
			e.execute(idx, qj)
			metrics.DispatchQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		case <-e.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					e.runOnce(idx, qj)
					drained++
				default:
					if drained > 0 {
						e.log.Info().Int("shard", idx).Int("jobs", drained).Msg("Drained remaining jobs")
					}
					metrics.DispatchQueueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs qj with exponential backoff until it succeeds, fails
// permanently, runs out of attempts, or the executor stops.
func (e *Executor) execute(idx int, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		e.fail(idx, qj.key, err)
		return
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = e.opts.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = e.opts.MaxInterval
	exp.Reset()

	for attempt := 1; ; attempt++ {
		err := e.runOnce(idx, qj)
		if err == nil {
			return
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) || attempt >= e.opts.MaxAttempts {
			e.fail(idx, qj.key, err)
			return
		}
		e.log.Debug().Err(err).Str("key", qj.key).Int("attempt", attempt).Msg("Job failed, retrying")

		wait := time.NewTimer(exp.NextBackOff())
		select {
		case <-wait.C:
		case <-e.done:
			wait.Stop()
			e.fail(idx, qj.key, err)
			return
		case <-qj.ctx.Done():
			wait.Stop()
			e.fail(idx, qj.key, qj.ctx.Err())
			return
		}
	}
}

// runOnce isolates a panicking job so it cannot take its shard down.
func (e *Executor) runOnce(idx int, qj queuedJob) (err error) {
	if qj.job == nil {
		return nil
	}
	start := time.Now()
	defer func() {
		metrics.DispatchRunDuration.WithLabelValues(metrics.ShardLabel(idx)).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			err = backoff.Permanent(fmt.Errorf("job panic: %v", r))
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (e *Executor) fail(idx int, key string, err error) {
	metrics.DispatchFailuresTotal.WithLabelValues(metrics.ShardLabel(idx)).Inc()
	e.log.Warn().Err(err).Str("key", key).Int("shard", idx).Msg("Dispatch job failed")
	if e.opts.ErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("Dispatch error handler panicked")
		}
	}()
	e.opts.ErrorHandler(key, err)
}

func (e *Executor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(e.opts.Shards))
}
