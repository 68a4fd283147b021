package cfg

import (
	"app/internal/app/api"
	"app/pkg/engine"
	"app/pkg/ffmpeg"
	"app/pkg/synth"
	"app/pkg/voices"
)

type Config struct {
	Api api.Config `yaml:"api"`

	Engine engine.Config `yaml:"engine"`
	Voices voices.Config `yaml:"voices"`
	Synth  synth.Config  `yaml:"synth"`

	Ffmpeg ffmpeg.Config `yaml:"ffmpeg"`
}
