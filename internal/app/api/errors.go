package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"app/pkg/audio"
	"app/pkg/engine"
	"app/pkg/synth"
	"app/pkg/voices"
)

// ValidationError names the offending field so malformed requests never
// surface as a generic 500.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// errorResponse is the structured error body. Shape kept stable for
// clients that parse {"status":"error","error":...}.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, field, msg string) {
	writeJSON(w, status, &errorResponse{
		Status: "error",
		Error:  msg,
		Field:  field,
	})
}

// writeSynthError maps the failure taxonomy onto distinct, stable HTTP
// outcomes. No silent retries here: classification is the server's job,
// retrying is the client's.
func (api *API) writeSynthError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Field, vErr.Msg)

		return
	}

	var nfErr *voices.NotFoundError
	if errors.As(err, &nfErr) {
		writeError(w, http.StatusNotFound, "voice", err.Error())

		return
	}

	if errors.Is(err, synth.ErrOverloaded) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "", err.Error())

		return
	}

	if errors.Is(err, context.Canceled) {
		// client went away before the response was ready
		api.logger.Debug("request canceled by client", "path", r.URL.Path)
		writeError(w, http.StatusRequestTimeout, "", "request canceled")

		return
	}

	var encErr *audio.EncodingError
	if errors.As(err, &encErr) {
		api.logger.Error("encoding failed", "err", err)
		writeError(w, http.StatusInternalServerError, "", err.Error())

		return
	}

	switch engine.ErrCode(err) {
	case engine.CodeNotReady, engine.CodeLoadFailed:
		writeError(w, http.StatusServiceUnavailable, "", err.Error())
	case engine.CodeInference:
		writeError(w, http.StatusUnprocessableEntity, "", err.Error())
	case engine.CodeResourceExhausted:
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "", err.Error())
	case engine.CodeTimeout:
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusGatewayTimeout, "", err.Error())
	default:
		api.logger.Error("synthesis failed", "err", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "", err.Error())
	}
}
