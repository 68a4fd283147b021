package engine

import (
	"context"
	"time"

	"app/pkg/audio"
)

type Config struct {
	WorkerCmd  string   `yaml:"worker_cmd"`
	WorkerArgs []string `yaml:"worker_args"`

	ModelDir string `yaml:"model_dir"`
	CfgPath  string `yaml:"cfg_path"`

	Device        string `yaml:"device"`
	UseFP16       bool   `yaml:"use_fp16"`
	UseCudaKernel bool   `yaml:"use_cuda_kernel"`
	UseDeepSpeed  bool   `yaml:"use_deepspeed"`

	LoadTimeout  time.Duration `yaml:"load_timeout"`
	SynthTimeout time.Duration `yaml:"synth_timeout"`

	Warmup bool `yaml:"warmup"`
}

// Params are emotion/style and generation controls passed through to the
// model. Validated syntactically at the HTTP boundary, interpreted only by
// the inference worker.
type Params struct {
	EmoAlpha                float64   `json:"emo_alpha"`
	EmoVector               []float64 `json:"emo_vector,omitempty"`
	UseEmoText              bool      `json:"use_emo_text"`
	EmoText                 string    `json:"emo_text,omitempty"`
	UseRandom               bool      `json:"use_random"`
	MaxTextTokensPerSegment int       `json:"max_text_tokens_per_segment"`

	DoSample          bool    `json:"do_sample"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	Temperature       float64 `json:"temperature"`
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	LengthPenalty     float64 `json:"length_penalty"`
	MaxMelTokens      int     `json:"max_mel_tokens"`
	IntervalSilence   int     `json:"interval_silence"`
}

// DefaultParams mirrors the generation defaults the model was tuned for.
func DefaultParams() Params {
	return Params{
		EmoAlpha:                0.65,
		MaxTextTokensPerSegment: 120,
		DoSample:                true,
		TopP:                    0.8,
		TopK:                    30,
		Temperature:             0.8,
		NumBeams:                3,
		RepetitionPenalty:       10.0,
		MaxMelTokens:            1500,
		IntervalSilence:         200,
	}
}

// Request is what actually reaches the model: text plus resolved speaker
// reference audio bytes.
type Request struct {
	Text           string
	ReferenceAudio []byte
	EmotionAudio   []byte
	Params         Params
}

// Info describes the loaded model without touching the engine.
type Info struct {
	ModelVersion  string `json:"model_version"`
	Device        string `json:"device"`
	UseFP16       bool   `json:"use_fp16"`
	UseCudaKernel bool   `json:"use_cuda_kernel"`
	UseDeepSpeed  bool   `json:"use_deepspeed"`
}

// Engine is the opaque synthesis capability: text + reference voice in,
// waveform out. Callers guarantee exclusivity; implementations only have
// to fail loudly when unusable.
type Engine interface {
	Synthesize(ctx context.Context, req *Request) (*audio.Waveform, error)
	Close() error
}

// Loader constructs the engine once. Expensive: this is where checkpoints
// are verified and the model is brought onto the accelerator.
type Loader func(ctx context.Context) (Engine, Info, error)
