package api

import (
	"strings"
	"testing"

	"app/pkg/audio"
	"app/pkg/engine"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestStyleParamsDefaults(t *testing.T) {
	t.Parallel()

	params, err := (&styleParams{}).apply()
	require.NoError(t, err)
	require.Equal(t, engine.DefaultParams(), params)

	params, err = (*styleParams)(nil).apply()
	require.NoError(t, err)
	require.Equal(t, engine.DefaultParams(), params)
}

func TestStyleParamsOverrides(t *testing.T) {
	t.Parallel()

	in := &styleParams{
		EmoAlpha:    ptr(0.3),
		EmoVector:   []float64{1, 0, 0, 0, 0, 0, 0, 0},
		Temperature: ptr(1.5),
		NumBeams:    ptr(5),
		DoSample:    ptr(false),
	}

	params, err := in.apply()
	require.NoError(t, err)
	require.Equal(t, 0.3, params.EmoAlpha)
	require.Equal(t, []float64{1, 0, 0, 0, 0, 0, 0, 0}, params.EmoVector)
	require.Equal(t, 1.5, params.Temperature)
	require.Equal(t, 5, params.NumBeams)
	require.False(t, params.DoSample)

	// untouched fields keep model defaults
	require.Equal(t, engine.DefaultParams().TopP, params.TopP)
	require.Equal(t, engine.DefaultParams().MaxMelTokens, params.MaxMelTokens)
}

func TestStyleParamsValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field  string
		params styleParams
	}{
		{"emo_alpha", styleParams{EmoAlpha: ptr(1.5)}},
		{"emo_alpha", styleParams{EmoAlpha: ptr(-0.1)}},
		{"emo_vector", styleParams{EmoVector: []float64{1, 2, 3}}},
		{"max_text_tokens_per_segment", styleParams{MaxTextTokensPerSegment: ptr(10)}},
		{"top_p", styleParams{TopP: ptr(1.2)}},
		{"top_k", styleParams{TopK: ptr(-1)}},
		{"temperature", styleParams{Temperature: ptr(0.05)}},
		{"temperature", styleParams{Temperature: ptr(2.5)}},
		{"num_beams", styleParams{NumBeams: ptr(0)}},
		{"num_beams", styleParams{NumBeams: ptr(11)}},
		{"repetition_penalty", styleParams{RepetitionPenalty: ptr(25.0)}},
		{"length_penalty", styleParams{LengthPenalty: ptr(3.0)}},
		{"max_mel_tokens", styleParams{MaxMelTokens: ptr(10)}},
		{"interval_silence", styleParams{IntervalSilence: ptr(-5)}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.field, func(t *testing.T) {
			t.Parallel()

			_, err := tc.params.apply()

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestValidateSpeed(t *testing.T) {
	t.Parallel()

	speed, err := validateSpeed(0)
	require.NoError(t, err)
	require.Equal(t, 1.0, speed)

	speed, err = validateSpeed(0.25)
	require.NoError(t, err)
	require.Equal(t, 0.25, speed)

	_, err = validateSpeed(0.1)
	require.Error(t, err)

	_, err = validateSpeed(4.5)
	require.Error(t, err)
}

func TestNormalizeNativeVoiceExclusivity(t *testing.T) {
	t.Parallel()

	api := &API{cfg: &Config{}}

	_, err := api.normalizeNative(&nativeTTSRequest{Text: "hi"})
	requireFieldError(t, err, "voice")

	_, err = api.normalizeNative(&nativeTTSRequest{
		Text:           "hi",
		Voice:          "voice_01",
		ReferenceAudio: []byte{1, 2, 3},
	})
	requireFieldError(t, err, "voice")

	req, err := api.normalizeNative(&nativeTTSRequest{Text: "hi", Voice: "voice_01"})
	require.NoError(t, err)
	require.Equal(t, "voice_01", req.VoiceID)
	require.Equal(t, audio.FormatWav, req.Format)
}

func TestNormalizeNativeTextLimits(t *testing.T) {
	t.Parallel()

	api := &API{cfg: &Config{MaxTextLength: 10}}

	_, err := api.normalizeNative(&nativeTTSRequest{Text: "   ", Voice: "v"})
	requireFieldError(t, err, "text")

	_, err = api.normalizeNative(&nativeTTSRequest{Text: strings.Repeat("a", 11), Voice: "v"})
	requireFieldError(t, err, "text")
}

func TestNormalizeNativeFormat(t *testing.T) {
	t.Parallel()

	api := &API{cfg: &Config{}}

	req, err := api.normalizeNative(&nativeTTSRequest{Text: "hi", Voice: "v", Format: "ogg"})
	require.NoError(t, err)
	require.Equal(t, audio.FormatOgg, req.Format)

	_, err = api.normalizeNative(&nativeTTSRequest{Text: "hi", Voice: "v", Format: "m4a"})
	requireFieldError(t, err, "format")
}

func TestNormalizeOpenAIDefaults(t *testing.T) {
	t.Parallel()

	api := &API{cfg: &Config{}}

	req, err := api.normalizeOpenAI(&openaiSpeechRequest{Input: "hi", Voice: "alloy"})
	require.NoError(t, err)
	require.Equal(t, audio.FormatMp3, req.Format)
	require.Equal(t, "tts-1", req.Model)
	require.Equal(t, 1.0, req.Speed)
	require.Equal(t, engine.DefaultParams(), req.Params)
}

func TestNormalizeOpenAIRejections(t *testing.T) {
	t.Parallel()

	api := &API{cfg: &Config{}}

	_, err := api.normalizeOpenAI(&openaiSpeechRequest{Input: "hi"})
	requireFieldError(t, err, "voice")

	_, err = api.normalizeOpenAI(&openaiSpeechRequest{Input: "", Voice: "alloy"})
	requireFieldError(t, err, "input")

	// ogg parses as a container but is outside the compat enum
	_, err = api.normalizeOpenAI(&openaiSpeechRequest{Input: "hi", Voice: "alloy", ResponseFormat: "ogg"})
	requireFieldError(t, err, "response_format")

	_, err = api.normalizeOpenAI(&openaiSpeechRequest{Input: "hi", Voice: "alloy", ResponseFormat: "xyz"})
	requireFieldError(t, err, "response_format")
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, field, vErr.Field)
}
