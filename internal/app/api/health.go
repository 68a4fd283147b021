package api

import (
	"net/http"

	"app/pkg/engine"
)

type healthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelState   string `json:"model_state"`
	Device       string `json:"device,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
	Voices       int    `json:"voices"`
}

// health reports healthy only once the model has reached Ready at least
// once and the catalog scan has completed, even if it came back empty.
func (api *API) health(w http.ResponseWriter, r *http.Request) {
	state := api.handle.State()

	status := "healthy"
	switch {
	case state == engine.StateFailed, !api.handle.EverReady(), !api.catalog.Scanned():
		status = "unhealthy"
	case api.catalog.Degraded():
		status = "degraded"
	}

	info := api.handle.Info()

	writeJSON(w, http.StatusOK, &healthResponse{
		Status:       status,
		ModelLoaded:  state == engine.StateReady,
		ModelState:   state.String(),
		Device:       info.Device,
		ModelVersion: info.ModelVersion,
		Voices:       api.catalog.Len(),
	})
}

type modelInfoResponse struct {
	ModelVersion  string `json:"model_version,omitempty"`
	Device        string `json:"device"`
	State         string `json:"state"`
	UseFP16       bool   `json:"use_fp16"`
	UseCudaKernel bool   `json:"use_cuda_kernel"`
	UseDeepSpeed  bool   `json:"use_deepspeed"`
}

// modelInfo reports identity and configuration without invoking the
// engine; it answers in every state.
func (api *API) modelInfo(w http.ResponseWriter, r *http.Request) {
	info := api.handle.Info()

	device := info.Device
	if device == "" {
		device = api.engineCfg.Device
	}

	writeJSON(w, http.StatusOK, &modelInfoResponse{
		ModelVersion:  info.ModelVersion,
		Device:        device,
		State:         api.handle.State().String(),
		UseFP16:       api.engineCfg.UseFP16,
		UseCudaKernel: api.engineCfg.UseCudaKernel,
		UseDeepSpeed:  api.engineCfg.UseDeepSpeed,
	})
}

type reloadResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// modelReload clears a terminal Failed state and re-runs initialization.
func (api *API) modelReload(w http.ResponseWriter, r *http.Request) {
	if err := api.handle.Reload(r.Context()); err != nil {
		api.writeSynthError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, &reloadResponse{
		Status: "ok",
		State:  api.handle.State().String(),
	})
}

type rootResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func (api *API) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &rootResponse{
		Name:    "IndexTTS2 API",
		Version: "2.0.0",
		Endpoints: map[string]string{
			"health":     "/health",
			"model_info": "/model/info",
			"tts":        "/api/v1/tts",
			"voices":     "/api/v1/voices",
			"openai_tts": "/v1/audio/speech",
			"metrics":    "/metrics",
		},
	})
}
