package synthesizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"app/pkg/audio"
	"app/pkg/engine"
	"app/pkg/synth"
	"app/pkg/voices"
)

// Queue is the serialized execution lane for the shared accelerator.
type Queue interface {
	Submit(ctx context.Context, req *engine.Request) (*audio.Waveform, error)
}

// Service is the end-to-end synthesis flow: resolve voice, enqueue
// inference, encode the waveform into the requested container. Requests
// arrive already normalized and validated.
type Service struct {
	logger  *slog.Logger
	catalog *voices.Catalog
	aliases voices.Aliases
	handle  *engine.Handle
	queue   Queue
	encoder *audio.Encoder
}

func New(logger *slog.Logger, catalog *voices.Catalog, aliases voices.Aliases, handle *engine.Handle, queue Queue, encoder *audio.Encoder) *Service {
	return &Service{
		logger:  logger,
		catalog: catalog,
		aliases: aliases,
		handle:  handle,
		queue:   queue,
		encoder: encoder,
	}
}

// Synthesize runs one canonical request through the full pipeline and
// returns encoded audio bytes in the request's format.
func (s *Service) Synthesize(ctx context.Context, req *synth.Request) ([]byte, error) {
	ref := req.ReferenceAudio

	if len(ref) == 0 {
		voice, err := s.resolveVoice(req.VoiceID)
		if err != nil {
			return nil, err
		}

		ref, err = os.ReadFile(voice.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read voice file %s: %w", voice.Path, err)
		}
	}

	if err := s.handle.EnsureReady(ctx); err != nil {
		return nil, err
	}

	wave, err := s.queue.Submit(ctx, &engine.Request{
		Text:           req.Text,
		ReferenceAudio: ref,
		EmotionAudio:   req.EmotionAudio,
		Params:         req.Params,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("synthesized speech",
		"text_len", len(req.Text),
		"voice", req.VoiceID,
		"format", req.Format,
		"duration", wave.Duration(),
	)

	out, err := s.encoder.Encode(ctx, wave, req.Format)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ResolveVoice applies the alias policy and then the catalog.
func (s *Service) resolveVoice(name string) (voices.Voice, error) {
	id := voices.ResolveAlias(s.aliases, name)

	voice, ok := s.catalog.Resolve(id)
	if !ok {
		return voices.Voice{}, &voices.NotFoundError{ID: name}
	}

	return voice, nil
}
