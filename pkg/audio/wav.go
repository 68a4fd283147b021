package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// EncodeWav renders a waveform into a WAV container in memory.
func EncodeWav(w *Waveform) ([]byte, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, fmt.Errorf("empty waveform")
	}

	channels := w.Channels
	if channels == 0 {
		channels = 1
	}

	buf := &seekBuffer{}

	enc := wav.NewEncoder(buf, w.SampleRate, wavBitDepth, channels, 1)

	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			SampleRate:  w.SampleRate,
			NumChannels: channels,
		},
		Data:           toIntSlice(w.Samples),
		SourceBitDepth: wavBitDepth,
	}

	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("failed to write wav data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav container: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWav parses a WAV container back into a waveform.
func DecodeWav(data []byte) (*Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))

	intBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav data: %w", err)
	}

	if intBuf.Format == nil {
		return nil, fmt.Errorf("wav data has no format chunk")
	}

	samples := make([]int16, len(intBuf.Data))
	for i, s := range intBuf.Data {
		samples[i] = int16(s)
	}

	return &Waveform{
		Samples:    samples,
		SampleRate: intBuf.Format.SampleRate,
		Channels:   intBuf.Format.NumChannels,
	}, nil
}

// EncodePcm renders raw little-endian PCM16 without a container.
func EncodePcm(w *Waveform) ([]byte, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, fmt.Errorf("empty waveform")
	}

	out := make([]byte, 2*len(w.Samples))
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}

	return out, nil
}

func toIntSlice(data []int16) []int {
	result := make([]int, len(data))
	for i, v := range data {
		result[i] = int(v)
	}

	return result
}

// seekBuffer is an in-memory io.WriteSeeker for the wav encoder, which
// seeks back to patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.buf) {
		grown := make([]byte, need)
		copy(grown, b.buf)
		b.buf = grown
	}

	copy(b.buf[b.pos:], p)
	b.pos += len(p)

	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}

	b.pos = int(pos)

	return pos, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.buf
}
