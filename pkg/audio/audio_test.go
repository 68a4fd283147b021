package audio_test

import (
	"encoding/binary"
	"testing"
	"time"

	"app/pkg/audio"

	"github.com/stretchr/testify/require"
)

func sineish(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i%100 - 50) * 300)
	}

	return samples
}

func TestWavRoundTrip(t *testing.T) {
	t.Parallel()

	src := &audio.Waveform{Samples: sineish(24000), SampleRate: 24000, Channels: 1}

	data, err := audio.EncodeWav(src)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	got, err := audio.DecodeWav(data)
	require.NoError(t, err)
	require.Equal(t, src.SampleRate, got.SampleRate)
	require.Equal(t, src.Channels, got.Channels)
	require.Equal(t, src.Samples, got.Samples)
}

func TestEncodeWavEmpty(t *testing.T) {
	t.Parallel()

	_, err := audio.EncodeWav(&audio.Waveform{SampleRate: 24000, Channels: 1})
	require.Error(t, err)

	_, err = audio.EncodeWav(nil)
	require.Error(t, err)
}

func TestEncodePcm(t *testing.T) {
	t.Parallel()

	w := &audio.Waveform{Samples: []int16{0, 1, -1, 32767, -32768}, SampleRate: 24000, Channels: 1}

	data, err := audio.EncodePcm(w)
	require.NoError(t, err)
	require.Len(t, data, 2*len(w.Samples))

	for i, s := range w.Samples {
		require.Equal(t, uint16(s), binary.LittleEndian.Uint16(data[2*i:]))
	}
}

func TestWaveformDuration(t *testing.T) {
	t.Parallel()

	w := &audio.Waveform{Samples: make([]int16, 48000), SampleRate: 24000, Channels: 2}
	require.Equal(t, 24000, w.Frames())
	require.Equal(t, time.Second, w.Duration())

	var nilWave *audio.Waveform
	require.Equal(t, 0, nilWave.Frames())
	require.Equal(t, time.Duration(0), nilWave.Duration())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"wav", "WAV", " mp3 ", "flac", "opus", "aac", "ogg", "pcm"} {
		_, err := audio.ParseFormat(s)
		require.NoError(t, err, s)
	}

	_, err := audio.ParseFormat("m4a")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	_, err = audio.ParseFormat("")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "audio/wav", audio.FormatWav.ContentType())
	require.Equal(t, "audio/mpeg", audio.FormatMp3.ContentType())
	require.Equal(t, "application/octet-stream", audio.Format("junk").ContentType())
}
