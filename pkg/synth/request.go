package synth

import (
	"app/pkg/audio"
	"app/pkg/engine"
)

// Request is the canonical form every external schema converges to.
// Exactly one of VoiceID / ReferenceAudio is set by the time validation
// has passed.
type Request struct {
	Text string

	VoiceID        string
	ReferenceAudio []byte
	EmotionAudio   []byte

	Format audio.Format

	// Speed is accepted for schema compatibility with clients that always
	// send it; synthesis does not apply it.
	Speed float64

	// Model is accepted for OpenAI compatibility; recognized values
	// behave identically.
	Model string

	Params engine.Params
}
