package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// openaiSpeech handles POST /v1/audio/speech, a drop-in replacement for
// OpenAI's speech endpoint.
func (api *API) openaiSpeech(w http.ResponseWriter, r *http.Request) {
	var body openaiSpeechRequest

	if data, err := io.ReadAll(r.Body); err != nil {
		api.writeSynthError(w, r, &ValidationError{Field: "body", Msg: "failed to read body: " + err.Error()})

		return
	} else if err := json.Unmarshal(data, &body); err != nil {
		api.writeSynthError(w, r, &ValidationError{Field: "body", Msg: "invalid json: " + err.Error()})

		return
	}

	req, err := api.normalizeOpenAI(&body)
	if err != nil {
		api.writeSynthError(w, r, err)

		return
	}

	if req.Speed != defaultTTSSpeed {
		api.logger.Debug("speed accepted for compatibility, not applied", "speed", req.Speed)
	}

	api.synthesize(w, r, req)
}

type openaiModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type openaiModelList struct {
	Object string        `json:"object"`
	Data   []openaiModel `json:"data"`
}

// Both models behave identically; the listing exists so OpenAI SDKs can
// discover something to send.
func (api *API) openaiModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &openaiModelList{
		Object: "list",
		Data: []openaiModel{
			{ID: "tts-1", Object: "model", Created: 1677610602, OwnedBy: "indextts"},
			{ID: "tts-1-hd", Object: "model", Created: 1677610602, OwnedBy: "indextts"},
		},
	})
}
