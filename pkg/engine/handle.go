package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"app/pkg/audio"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// Handle owns the one engine instance. Initialization runs exactly once
// regardless of caller concurrency; a Failed load is terminal until
// Reload. Synthesis exclusivity is the queue's job, not the handle's —
// the handle only refuses dispatch while not Ready.
type Handle struct {
	mu      sync.Mutex
	state   State
	engine  Engine
	info    Info
	loadErr error
	done    chan struct{} // non-nil while Loading, closed on resolution

	loader    Loader
	everReady atomic.Bool
}

func NewHandle(loader Loader) *Handle {
	return &Handle{
		loader: loader,
	}
}

// EnsureReady is idempotent. The first caller kicks off the load; callers
// arriving during Loading block until the transition resolves or their
// context gives up (the load itself keeps going).
func (h *Handle) EnsureReady(ctx context.Context) error {
	for {
		h.mu.Lock()

		switch h.state {
		case StateReady:
			h.mu.Unlock()

			return nil
		case StateFailed:
			err := h.loadErr
			h.mu.Unlock()

			return NewError(CodeLoadFailed, fmt.Errorf("model load failed: %w", err))
		case StateUninitialized:
			h.state = StateLoading
			h.done = make(chan struct{})

			go h.load()
		case StateLoading:
		}

		done := h.done
		h.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Handle) load() {
	start := time.Now()

	// Detached from any request context: a canceled caller must not abort
	// a load other callers are waiting on.
	eng, info, err := h.loader(context.Background())

	h.mu.Lock()

	if err != nil {
		h.state = StateFailed
		h.loadErr = err

		metrics.LoadFailures.Inc()
	} else {
		h.state = StateReady
		h.engine = eng
		h.info = info
		h.everReady.Store(true)

		metrics.LoadSeconds.Observe(time.Since(start).Seconds())
	}

	close(h.done)
	h.done = nil

	h.mu.Unlock()
}

// Reload discards a Failed (or Ready) engine and re-runs initialization.
func (h *Handle) Reload(ctx context.Context) error {
	h.mu.Lock()

	if h.state == StateLoading {
		h.mu.Unlock()

		return h.EnsureReady(ctx)
	}

	old := h.engine

	h.state = StateUninitialized
	h.engine = nil
	h.loadErr = nil

	h.mu.Unlock()

	// Close can block on an in-flight inference; done outside the lock so
	// State/Info stay responsive while the old engine drains.
	if old != nil {
		_ = old.Close()
	}

	return h.EnsureReady(ctx)
}

// Synthesize dispatches to the engine, requiring state Ready.
func (h *Handle) Synthesize(ctx context.Context, req *Request) (*audio.Waveform, error) {
	h.mu.Lock()

	if h.state != StateReady {
		state := h.state
		loadErr := h.loadErr
		h.mu.Unlock()

		if state == StateFailed {
			return nil, NewError(CodeLoadFailed, fmt.Errorf("model load failed: %w", loadErr))
		}

		return nil, NewError(CodeNotReady, fmt.Errorf("model is %s, not ready", state))
	}

	eng := h.engine
	h.mu.Unlock()

	start := time.Now()

	wave, err := eng.Synthesize(ctx, req)
	if err != nil {
		metrics.SynthesisErrors.WithLabelValues(ErrCode(err).String()).Inc()

		return nil, err
	}

	metrics.SynthesisSeconds.Observe(time.Since(start).Seconds())

	return wave, nil
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// EverReady reports whether the model reached Ready at least once.
func (h *Handle) EverReady() bool {
	return h.everReady.Load()
}

func (h *Handle) LoadErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.loadErr
}

// Info reports model identity without invoking the engine.
func (h *Handle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.info
}

// Close releases the engine if one was loaded.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.engine == nil {
		return nil
	}

	err := h.engine.Close()
	h.engine = nil
	h.state = StateUninitialized

	return err
}
