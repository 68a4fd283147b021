package engine_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"app/pkg/audio"
	"app/pkg/engine"

	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	synthCalls atomic.Int64
	err        error
}

func (e *stubEngine) Synthesize(ctx context.Context, req *engine.Request) (*audio.Waveform, error) {
	e.synthCalls.Add(1)

	if e.err != nil {
		return nil, e.err
	}

	return &audio.Waveform{
		Samples:    make([]int16, 2400),
		SampleRate: 24000,
		Channels:   1,
	}, nil
}

func (e *stubEngine) Close() error {
	return nil
}

func TestHandleSingleInitialization(t *testing.T) {
	t.Parallel()

	var loads atomic.Int64

	stub := &stubEngine{}

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond)

		return stub, engine.Info{Device: "cpu"}, nil
	})

	require.Equal(t, engine.StateUninitialized, handle.State())
	require.False(t, handle.EverReady())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, handle.EnsureReady(context.Background()))
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, loads.Load(), "initialization must run exactly once")
	require.Equal(t, engine.StateReady, handle.State())
	require.True(t, handle.EverReady())
	require.Equal(t, "cpu", handle.Info().Device)
}

func TestHandleLoadFailureIsTerminal(t *testing.T) {
	t.Parallel()

	var loads atomic.Int64

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		loads.Add(1)

		return nil, engine.Info{}, fmt.Errorf("checkpoints missing")
	})

	err := handle.EnsureReady(context.Background())
	require.Error(t, err)
	require.Equal(t, engine.CodeLoadFailed, engine.ErrCode(err))
	require.Equal(t, engine.StateFailed, handle.State())

	// surfaced persistently, not retried implicitly
	err = handle.EnsureReady(context.Background())
	require.Error(t, err)
	require.Equal(t, engine.CodeLoadFailed, engine.ErrCode(err))
	require.EqualValues(t, 1, loads.Load())

	_, err = handle.Synthesize(context.Background(), &engine.Request{Text: "hi"})
	require.Equal(t, engine.CodeLoadFailed, engine.ErrCode(err))
}

func TestHandleReloadAfterFailure(t *testing.T) {
	t.Parallel()

	var loads atomic.Int64
	var healthy atomic.Bool

	stub := &stubEngine{}

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		loads.Add(1)

		if !healthy.Load() {
			return nil, engine.Info{}, fmt.Errorf("cuda not available")
		}

		return stub, engine.Info{}, nil
	})

	require.Error(t, handle.EnsureReady(context.Background()))

	healthy.Store(true)

	require.NoError(t, handle.Reload(context.Background()))
	require.EqualValues(t, 2, loads.Load())
	require.Equal(t, engine.StateReady, handle.State())
}

type slowCloseEngine struct {
	stubEngine
	closing chan struct{}
	delay   time.Duration
}

func (e *slowCloseEngine) Close() error {
	close(e.closing)
	time.Sleep(e.delay)

	return nil
}

func TestHandleReloadDoesNotBlockStateDuringClose(t *testing.T) {
	t.Parallel()

	slow := &slowCloseEngine{closing: make(chan struct{}), delay: 500 * time.Millisecond}

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		return slow, engine.Info{Device: "cpu"}, nil
	})

	require.NoError(t, handle.EnsureReady(context.Background()))

	reloaded := make(chan error, 1)
	go func() {
		reloaded <- handle.Reload(context.Background())
	}()

	<-slow.closing

	// the old engine is still draining; state queries must not wait on it
	start := time.Now()
	handle.State()
	handle.Info()
	require.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, <-reloaded)
	require.Equal(t, engine.StateReady, handle.State())
}

func TestHandleSynthesizeRequiresReady(t *testing.T) {
	t.Parallel()

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		return &stubEngine{}, engine.Info{}, nil
	})

	_, err := handle.Synthesize(context.Background(), &engine.Request{Text: "hi"})
	require.Error(t, err)
	require.Equal(t, engine.CodeNotReady, engine.ErrCode(err))

	require.NoError(t, handle.EnsureReady(context.Background()))

	wave, err := handle.Synthesize(context.Background(), &engine.Request{Text: "hi"})
	require.NoError(t, err)
	require.NotZero(t, wave.Frames())
}

func TestHandleEnsureReadyRespectsCallerContext(t *testing.T) {
	t.Parallel()

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		time.Sleep(time.Second)

		return &stubEngine{}, engine.Info{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := handle.EnsureReady(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the load itself keeps going and resolves for later callers
	require.NoError(t, handle.EnsureReady(context.Background()))
}
