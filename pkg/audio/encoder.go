package audio

import (
	"context"
	"fmt"

	"app/pkg/ffmpeg"
)

// EncodingError marks a codec failure on an otherwise valid synthesis result.
type EncodingError struct {
	Format Format
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %s", e.Format, e.Err.Error())
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encoder converts waveforms into the requested container. WAV and raw PCM
// are produced natively, everything else goes through ffmpeg with a WAV
// intermediate.
type Encoder struct {
	ffmpeg *ffmpeg.Client
}

func NewEncoder(ffmpegClient *ffmpeg.Client) *Encoder {
	return &Encoder{
		ffmpeg: ffmpegClient,
	}
}

func (e *Encoder) Encode(ctx context.Context, w *Waveform, format Format) ([]byte, error) {
	switch format {
	case FormatWav:
		out, err := EncodeWav(w)
		if err != nil {
			return nil, &EncodingError{Format: format, Err: err}
		}

		return out, nil
	case FormatPcm:
		out, err := EncodePcm(w)
		if err != nil {
			return nil, &EncodingError{Format: format, Err: err}
		}

		return out, nil
	case FormatMp3, FormatFlac, FormatOpus, FormatAac, FormatOgg:
		wavBytes, err := EncodeWav(w)
		if err != nil {
			return nil, &EncodingError{Format: format, Err: err}
		}

		out, err := e.ffmpeg.Convert(ctx, wavBytes, string(format), codecArgs(format))
		if err != nil {
			return nil, &EncodingError{Format: format, Err: err}
		}

		return out, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func codecArgs(format Format) []string {
	switch format {
	case FormatMp3:
		return []string{"-f", "mp3", "-b:a", "192k"}
	case FormatFlac:
		return []string{"-f", "flac"}
	case FormatOpus:
		return []string{"-f", "opus", "-b:a", "96k"}
	case FormatAac:
		return []string{"-f", "adts", "-b:a", "128k"}
	case FormatOgg:
		return []string{"-f", "ogg", "-c:a", "libvorbis"}
	}

	return nil
}
