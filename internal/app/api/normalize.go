package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"app/pkg/audio"
	"app/pkg/engine"
	"app/pkg/synth"
)

// Every external schema converges here: one canonical synth.Request,
// validated uniformly regardless of the entry shape.

const (
	maxUploadBytes   = 32 << 20
	emoVectorLen     = 8
	defaultTTSSpeed  = 1.0
	minSpeed         = 0.25
	maxSpeed         = 4.0
	defaultAPIFormat = audio.FormatWav
	// OpenAI SDKs default to mp3 and the compat surface follows
	defaultOpenAIFormat = audio.FormatMp3
)

// styleParams are the optional emotion and generation controls shared by
// the native schemas. Pointers distinguish "absent" from zero so model
// defaults stay in force.
type styleParams struct {
	EmoAlpha                *float64  `json:"emo_alpha,omitempty"`
	EmoVector               []float64 `json:"emo_vector,omitempty"`
	UseEmoText              bool      `json:"use_emo_text,omitempty"`
	EmoText                 string    `json:"emo_text,omitempty"`
	UseRandom               bool      `json:"use_random,omitempty"`
	MaxTextTokensPerSegment *int      `json:"max_text_tokens_per_segment,omitempty"`

	DoSample          *bool    `json:"do_sample,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	NumBeams          *int     `json:"num_beams,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	LengthPenalty     *float64 `json:"length_penalty,omitempty"`
	MaxMelTokens      *int     `json:"max_mel_tokens,omitempty"`
	IntervalSilence   *int     `json:"interval_silence,omitempty"`
}

// apply validates ranges syntactically and lays the overrides over the
// model defaults. Semantics belong to the inference worker.
func (p *styleParams) apply() (engine.Params, error) {
	out := engine.DefaultParams()

	if p == nil {
		return out, nil
	}

	if p.EmoAlpha != nil {
		if *p.EmoAlpha < 0 || *p.EmoAlpha > 1 {
			return out, &ValidationError{Field: "emo_alpha", Msg: "must be between 0.0 and 1.0"}
		}

		out.EmoAlpha = *p.EmoAlpha
	}

	if len(p.EmoVector) != 0 {
		if len(p.EmoVector) != emoVectorLen {
			return out, &ValidationError{Field: "emo_vector", Msg: fmt.Sprintf("must have exactly %d elements", emoVectorLen)}
		}

		out.EmoVector = append([]float64(nil), p.EmoVector...)
	}

	out.UseEmoText = p.UseEmoText
	out.EmoText = p.EmoText
	out.UseRandom = p.UseRandom

	if p.MaxTextTokensPerSegment != nil {
		if *p.MaxTextTokensPerSegment < 20 {
			return out, &ValidationError{Field: "max_text_tokens_per_segment", Msg: "must be at least 20"}
		}

		out.MaxTextTokensPerSegment = *p.MaxTextTokensPerSegment
	}

	if p.DoSample != nil {
		out.DoSample = *p.DoSample
	}

	if p.TopP != nil {
		if *p.TopP < 0 || *p.TopP > 1 {
			return out, &ValidationError{Field: "top_p", Msg: "must be between 0.0 and 1.0"}
		}

		out.TopP = *p.TopP
	}

	if p.TopK != nil {
		if *p.TopK < 0 {
			return out, &ValidationError{Field: "top_k", Msg: "must not be negative"}
		}

		out.TopK = *p.TopK
	}

	if p.Temperature != nil {
		if *p.Temperature < 0.1 || *p.Temperature > 2 {
			return out, &ValidationError{Field: "temperature", Msg: "must be between 0.1 and 2.0"}
		}

		out.Temperature = *p.Temperature
	}

	if p.NumBeams != nil {
		if *p.NumBeams < 1 || *p.NumBeams > 10 {
			return out, &ValidationError{Field: "num_beams", Msg: "must be between 1 and 10"}
		}

		out.NumBeams = *p.NumBeams
	}

	if p.RepetitionPenalty != nil {
		if *p.RepetitionPenalty < 0.1 || *p.RepetitionPenalty > 20 {
			return out, &ValidationError{Field: "repetition_penalty", Msg: "must be between 0.1 and 20.0"}
		}

		out.RepetitionPenalty = *p.RepetitionPenalty
	}

	if p.LengthPenalty != nil {
		if *p.LengthPenalty < -2 || *p.LengthPenalty > 2 {
			return out, &ValidationError{Field: "length_penalty", Msg: "must be between -2.0 and 2.0"}
		}

		out.LengthPenalty = *p.LengthPenalty
	}

	if p.MaxMelTokens != nil {
		if *p.MaxMelTokens < 50 {
			return out, &ValidationError{Field: "max_mel_tokens", Msg: "must be at least 50"}
		}

		out.MaxMelTokens = *p.MaxMelTokens
	}

	if p.IntervalSilence != nil {
		if *p.IntervalSilence < 0 {
			return out, &ValidationError{Field: "interval_silence", Msg: "must not be negative"}
		}

		out.IntervalSilence = *p.IntervalSilence
	}

	return out, nil
}

func (api *API) validateText(field, text string) (string, error) {
	text = strings.TrimSpace(text)

	if text == "" {
		return "", &ValidationError{Field: field, Msg: "must not be empty"}
	}

	if max := api.maxTextLength(); len(text) > max {
		return "", &ValidationError{Field: field, Msg: fmt.Sprintf("exceeds maximum length of %d", max)}
	}

	return text, nil
}

func validateSpeed(speed float64) (float64, error) {
	if speed == 0 {
		return defaultTTSSpeed, nil
	}

	if speed < minSpeed || speed > maxSpeed {
		return 0, &ValidationError{Field: "speed", Msg: fmt.Sprintf("must be between %g and %g", minSpeed, maxSpeed)}
	}

	return speed, nil
}

type nativeTTSRequest struct {
	Text           string `json:"text"`
	Voice          string `json:"voice,omitempty"`
	ReferenceAudio []byte `json:"ref_audio,omitempty"`
	EmotionAudio   []byte `json:"emo_audio,omitempty"`

	Format string  `json:"format,omitempty"`
	Speed  float64 `json:"speed,omitempty"`

	styleParams
}

func (api *API) normalizeNative(req *nativeTTSRequest) (*synth.Request, error) {
	text, err := api.validateText("text", req.Text)
	if err != nil {
		return nil, err
	}

	hasVoice := strings.TrimSpace(req.Voice) != ""
	hasRef := len(req.ReferenceAudio) != 0

	if hasVoice == hasRef {
		return nil, &ValidationError{Field: "voice", Msg: "exactly one of voice or ref_audio is required"}
	}

	format := defaultAPIFormat
	if req.Format != "" {
		format, err = audio.ParseFormat(req.Format)
		if err != nil {
			return nil, &ValidationError{Field: "format", Msg: err.Error()}
		}
	}

	speed, err := validateSpeed(req.Speed)
	if err != nil {
		return nil, err
	}

	params, err := req.styleParams.apply()
	if err != nil {
		return nil, err
	}

	return &synth.Request{
		Text:           text,
		VoiceID:        strings.TrimSpace(req.Voice),
		ReferenceAudio: req.ReferenceAudio,
		EmotionAudio:   req.EmotionAudio,
		Format:         format,
		Speed:          speed,
		Params:         params,
	}, nil
}

type openaiSpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// openaiFormats is OpenAI's own response_format enum; anything else is
// rejected, never silently defaulted.
var openaiFormats = map[audio.Format]struct{}{
	audio.FormatMp3:  {},
	audio.FormatOpus: {},
	audio.FormatAac:  {},
	audio.FormatFlac: {},
	audio.FormatWav:  {},
	audio.FormatPcm:  {},
}

func (api *API) normalizeOpenAI(req *openaiSpeechRequest) (*synth.Request, error) {
	text, err := api.validateText("input", req.Input)
	if err != nil {
		return nil, err
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		return nil, &ValidationError{Field: "voice", Msg: "must not be empty"}
	}

	format := defaultOpenAIFormat
	if req.ResponseFormat != "" {
		format, err = audio.ParseFormat(req.ResponseFormat)
		if err != nil {
			return nil, &ValidationError{Field: "response_format", Msg: err.Error()}
		}

		if _, ok := openaiFormats[format]; !ok {
			return nil, &ValidationError{Field: "response_format", Msg: fmt.Sprintf("unsupported format %q", req.ResponseFormat)}
		}
	}

	speed, err := validateSpeed(req.Speed)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = "tts-1"
	}

	// speed and model are recorded for compatibility; neither changes the
	// synthesis.
	return &synth.Request{
		Text:    text,
		VoiceID: voice,
		Format:  format,
		Speed:   speed,
		Model:   model,
		Params:  engine.DefaultParams(),
	}, nil
}

func (api *API) normalizeMultipart(r *http.Request) (*synth.Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &ValidationError{Field: "body", Msg: "invalid multipart form: " + err.Error()}
	}

	text, err := api.validateText("text", r.FormValue("text"))
	if err != nil {
		return nil, err
	}

	refAudio, err := readFormFile(r, "spk_audio_prompt")
	if err != nil {
		return nil, err
	}

	voice := strings.TrimSpace(r.FormValue("voice"))

	if (voice != "") == (len(refAudio) != 0) {
		return nil, &ValidationError{Field: "spk_audio_prompt", Msg: "exactly one of spk_audio_prompt or voice is required"}
	}

	emoAudio, err := readFormFile(r, "emo_audio_prompt")
	if err != nil {
		return nil, err
	}

	format := defaultAPIFormat
	if v := r.FormValue("format"); v != "" {
		format, err = audio.ParseFormat(v)
		if err != nil {
			return nil, &ValidationError{Field: "format", Msg: err.Error()}
		}
	}

	var speed float64
	if v := r.FormValue("speed"); v != "" {
		speed, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ValidationError{Field: "speed", Msg: "must be a number"}
		}
	}

	speed, err = validateSpeed(speed)
	if err != nil {
		return nil, err
	}

	params, err := parseFormParams(r)
	if err != nil {
		return nil, err
	}

	engineParams, err := params.apply()
	if err != nil {
		return nil, err
	}

	return &synth.Request{
		Text:           text,
		VoiceID:        voice,
		ReferenceAudio: refAudio,
		EmotionAudio:   emoAudio,
		Format:         format,
		Speed:          speed,
		Params:         engineParams,
	}, nil
}

func parseFormParams(r *http.Request) (*styleParams, error) {
	params := &styleParams{}

	if v := r.FormValue("emo_alpha"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ValidationError{Field: "emo_alpha", Msg: "must be a number"}
		}

		params.EmoAlpha = &f
	}

	// comma-separated: happy,angry,sad,afraid,disgusted,melancholic,surprised,calm
	if v := r.FormValue("emo_vector"); v != "" {
		parts := strings.Split(v, ",")

		vec := make([]float64, 0, len(parts))
		for _, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, &ValidationError{Field: "emo_vector", Msg: "must be comma-separated numbers"}
			}

			vec = append(vec, f)
		}

		params.EmoVector = vec
	}

	params.UseEmoText = r.FormValue("use_emo_text") == "true"
	params.EmoText = r.FormValue("emo_text")
	params.UseRandom = r.FormValue("use_random") == "true"

	intFields := map[string]**int{
		"max_text_tokens_per_segment": &params.MaxTextTokensPerSegment,
		"top_k":                       &params.TopK,
		"num_beams":                   &params.NumBeams,
		"max_mel_tokens":              &params.MaxMelTokens,
		"interval_silence":            &params.IntervalSilence,
	}

	for field, dst := range intFields {
		if v := r.FormValue(field); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &ValidationError{Field: field, Msg: "must be an integer"}
			}

			*dst = &n
		}
	}

	floatFields := map[string]**float64{
		"top_p":              &params.TopP,
		"temperature":        &params.Temperature,
		"repetition_penalty": &params.RepetitionPenalty,
		"length_penalty":     &params.LengthPenalty,
	}

	for field, dst := range floatFields {
		if v := r.FormValue(field); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &ValidationError{Field: field, Msg: "must be a number"}
			}

			*dst = &f
		}
	}

	if v := r.FormValue("do_sample"); v != "" {
		b := v == "true"
		params.DoSample = &b
	}

	return params, nil
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}

		return nil, &ValidationError{Field: field, Msg: "invalid file upload: " + err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, &ValidationError{Field: field, Msg: "failed to read upload: " + err.Error()}
	}

	if len(data) > maxUploadBytes {
		return nil, &ValidationError{Field: field, Msg: "upload exceeds size limit"}
	}

	if len(data) == 0 {
		return nil, &ValidationError{Field: field, Msg: "uploaded file is empty"}
	}

	return data, nil
}
