package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Waveform is raw model output: interleaved PCM16 samples.
type Waveform struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (w *Waveform) Frames() int {
	if w == nil || w.Channels == 0 {
		return 0
	}

	return len(w.Samples) / w.Channels
}

func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate == 0 {
		return 0
	}

	return time.Duration(w.Frames()) * time.Second / time.Duration(w.SampleRate)
}

type Format string

const (
	FormatWav  Format = "wav"
	FormatMp3  Format = "mp3"
	FormatFlac Format = "flac"
	FormatOpus Format = "opus"
	FormatAac  Format = "aac"
	FormatOgg  Format = "ogg"
	FormatPcm  Format = "pcm"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ParseFormat maps a client-supplied format string to a known container.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatWav:
		return FormatWav, nil
	case FormatMp3:
		return FormatMp3, nil
	case FormatFlac:
		return FormatFlac, nil
	case FormatOpus:
		return FormatOpus, nil
	case FormatAac:
		return FormatAac, nil
	case FormatOgg:
		return FormatOgg, nil
	case FormatPcm:
		return FormatPcm, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatWav:
		return "audio/wav"
	case FormatMp3:
		return "audio/mpeg"
	case FormatFlac:
		return "audio/flac"
	case FormatOpus:
		return "audio/opus"
	case FormatAac:
		return "audio/aac"
	case FormatOgg:
		return "audio/ogg"
	case FormatPcm:
		return "audio/pcm"
	}

	return "application/octet-stream"
}
