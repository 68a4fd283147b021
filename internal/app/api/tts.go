package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"app/pkg/synth"
)

// ttsMultipart handles POST /api/v1/tts: text plus an uploaded speaker
// reference (or a catalog voice id) with optional style controls.
func (api *API) ttsMultipart(w http.ResponseWriter, r *http.Request) {
	req, err := api.normalizeMultipart(r)
	if err != nil {
		api.writeSynthError(w, r, err)

		return
	}

	api.synthesize(w, r, req)
}

// ttsJSON handles POST /api/v1/tts/json, the JSON equivalent of the
// multipart endpoint with base64 reference audio.
func (api *API) ttsJSON(w http.ResponseWriter, r *http.Request) {
	var body nativeTTSRequest

	if data, err := io.ReadAll(r.Body); err != nil {
		api.writeSynthError(w, r, &ValidationError{Field: "body", Msg: "failed to read body: " + err.Error()})

		return
	} else if err := json.Unmarshal(data, &body); err != nil {
		api.writeSynthError(w, r, &ValidationError{Field: "body", Msg: "invalid json: " + err.Error()})

		return
	}

	req, err := api.normalizeNative(&body)
	if err != nil {
		api.writeSynthError(w, r, err)

		return
	}

	api.synthesize(w, r, req)
}

func (api *API) synthesize(w http.ResponseWriter, r *http.Request, req *synth.Request) {
	out, err := api.service.Synthesize(r.Context(), req)
	if err != nil {
		api.writeSynthError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=speech.%s", req.Format))
	w.Write(out)
}
