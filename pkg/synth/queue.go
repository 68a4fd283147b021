package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"app/pkg/audio"
	"app/pkg/engine"
)

// ErrOverloaded signals backpressure: the queue is full or the bounded
// wait was exceeded. Callers should retry later.
var ErrOverloaded = errors.New("synthesis queue overloaded")

type Config struct {
	// QueueSize bounds how many requests may wait for the synthesis slot.
	QueueSize int `yaml:"queue_size"`
	// MaxWait bounds total time in queue plus inference. Zero means the
	// request context alone decides.
	MaxWait time.Duration `yaml:"max_wait"`
}

const defaultQueueSize = 32

// Backend is the exclusive synthesis primitive the queue serializes
// access to.
type Backend interface {
	Synthesize(ctx context.Context, req *engine.Request) (*audio.Waveform, error)
}

type jobResult struct {
	wave *audio.Waveform
	err  error
}

type job struct {
	ctx      context.Context
	req      *engine.Request
	done     chan jobResult
	enqueued time.Time
}

// Queue serializes synthesis against a single accelerator. One dispatcher
// goroutine consumes a bounded channel, which gives strict FIFO admission
// and at-most-one-inflight inference regardless of request concurrency.
type Queue struct {
	backend Backend
	cfg     *Config

	jobs chan *job

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(backend Backend, cfg *Config) *Queue {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	q := &Queue{
		backend: backend,
		cfg:     cfg,
		jobs:    make(chan *job, size),
	}

	q.wg.Add(1)
	go q.dispatch()

	return q
}

// Submit enqueues a request and blocks until its waveform is ready, the
// bounded wait expires, or the caller gives up. A full queue fails fast
// with ErrOverloaded instead of queuing unboundedly.
func (q *Queue) Submit(ctx context.Context, req *engine.Request) (*audio.Waveform, error) {
	if q.cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.MaxWait)
		defer cancel()
	}

	j := &job{
		ctx:      ctx,
		req:      req,
		done:     make(chan jobResult, 1),
		enqueued: time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return nil, fmt.Errorf("%w: queue is shut down", ErrOverloaded)
	}

	select {
	case q.jobs <- j:
		metrics.QueueDepth.Inc()
	default:
		q.mu.Unlock()
		metrics.Rejections.Inc()

		return nil, fmt.Errorf("%w: %d requests already waiting", ErrOverloaded, cap(q.jobs))
	}
	q.mu.Unlock()

	select {
	case res := <-j.done:
		return res.wave, res.err
	case <-ctx.Done():
		// The dispatcher observes the dead context and drops the entry
		// without consuming the synthesis slot; if inference already
		// started it runs to completion and the result is discarded.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.Rejections.Inc()

			return nil, fmt.Errorf("%w: wait exceeded %s", ErrOverloaded, q.cfg.MaxWait)
		}

		return nil, ctx.Err()
	}
}

func (q *Queue) dispatch() {
	defer q.wg.Done()

	for j := range q.jobs {
		metrics.QueueDepth.Dec()

		// dropped while waiting, never consumes the slot
		if j.ctx.Err() != nil {
			j.done <- jobResult{err: j.ctx.Err()}
			continue
		}

		metrics.WaitSeconds.Observe(time.Since(j.enqueued).Seconds())
		metrics.InFlight.Set(1)

		// Inference is dispatched on a background context: this class of
		// model has no safe mid-computation abort.
		wave, err := q.backend.Synthesize(context.Background(), j.req)

		metrics.InFlight.Set(0)

		j.done <- jobResult{wave: wave, err: err}
	}
}

// Close stops the dispatcher after the jobs already admitted have been
// served.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
