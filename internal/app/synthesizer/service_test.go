package synthesizer_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"app/internal/app/synthesizer"
	"app/pkg/audio"
	"app/pkg/engine"
	"app/pkg/synth"
	"app/pkg/voices"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	lastRef []byte
}

func (e *fakeEngine) Synthesize(ctx context.Context, req *engine.Request) (*audio.Waveform, error) {
	e.lastRef = req.ReferenceAudio

	return &audio.Waveform{Samples: make([]int16, 2400), SampleRate: 24000, Channels: 1}, nil
}

func (e *fakeEngine) Close() error { return nil }

type directQueue struct {
	backend engine.Engine
}

func (q *directQueue) Submit(ctx context.Context, req *engine.Request) (*audio.Waveform, error) {
	return q.backend.Synthesize(ctx, req)
}

func newTestService(t *testing.T, eng *fakeEngine) (*synthesizer.Service, string) {
	t.Helper()

	dir := t.TempDir()

	wavBytes, err := audio.EncodeWav(&audio.Waveform{Samples: make([]int16, 240), SampleRate: 24000, Channels: 1})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voice_01.wav"), wavBytes, 0o644))

	catalog := voices.NewCatalog(&voices.Config{Dir: dir})
	require.NoError(t, catalog.Refresh())

	aliases := voices.StaticAliases{"alloy": "voice_01"}

	handle := engine.NewHandle(func(ctx context.Context) (engine.Engine, engine.Info, error) {
		return eng, engine.Info{Device: "cpu"}, nil
	})

	svc := synthesizer.New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog, aliases, handle,
		&directQueue{backend: eng},
		audio.NewEncoder(nil),
	)

	return svc, dir
}

func TestSynthesizeWithAlias(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	svc, _ := newTestService(t, eng)

	out, err := svc.Synthesize(context.Background(), &synth.Request{
		Text:    "hello there",
		VoiceID: "alloy",
		Format:  audio.FormatWav,
		Params:  engine.DefaultParams(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.NotEmpty(t, eng.lastRef, "reference audio is read from the aliased voice file")
}

func TestSynthesizeDirectVoiceID(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	svc, _ := newTestService(t, eng)

	_, err := svc.Synthesize(context.Background(), &synth.Request{
		Text:    "hello there",
		VoiceID: "voice_01",
		Format:  audio.FormatWav,
		Params:  engine.DefaultParams(),
	})
	require.NoError(t, err)
}

func TestSynthesizeUnknownVoice(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	svc, _ := newTestService(t, eng)

	_, err := svc.Synthesize(context.Background(), &synth.Request{
		Text:    "hello there",
		VoiceID: "nobody",
		Format:  audio.FormatWav,
		Params:  engine.DefaultParams(),
	})

	var notFound *voices.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "nobody", notFound.ID)
	require.Nil(t, eng.lastRef, "unknown voice must fail before inference")
}

func TestSynthesizeInlineReference(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	svc, _ := newTestService(t, eng)

	ref := []byte{0x52, 0x49, 0x46, 0x46}

	_, err := svc.Synthesize(context.Background(), &synth.Request{
		Text:           "hello there",
		ReferenceAudio: ref,
		Format:         audio.FormatWav,
		Params:         engine.DefaultParams(),
	})
	require.NoError(t, err)
	require.Equal(t, ref, eng.lastRef, "inline reference audio bypasses the catalog")
}
