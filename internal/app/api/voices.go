package api

import (
	"net/http"
)

type voiceInfo struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// voicesList serves both the native and OpenAI-compatible listings; the
// payload shape is shared, ordered lexicographically by identifier.
func (api *API) voicesList(w http.ResponseWriter, r *http.Request) {
	catalog := api.catalog.List()

	out := make([]voiceInfo, 0, len(catalog))
	for _, v := range catalog {
		out = append(out, voiceInfo{
			ID:     v.ID,
			Format: v.Format,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

type refreshResponse struct {
	Status string `json:"status"`
	Voices int    `json:"voices"`
}

// voicesRefresh is the explicit re-scan trigger. Scans never happen on
// the synthesis path.
func (api *API) voicesRefresh(w http.ResponseWriter, r *http.Request) {
	if err := api.catalog.Refresh(); err != nil {
		api.logger.Error("voice catalog refresh failed", "err", err)
		writeError(w, http.StatusInternalServerError, "", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, &refreshResponse{
		Status: "ok",
		Voices: api.catalog.Len(),
	})
}
