package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/internquest/sessionguard/credential"
	"github.com/internquest/sessionguard/storage"
)

// maxAuthBodySize bounds request bodies on the auth endpoints.
const maxAuthBodySize = 16 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeInternalError logs the underlying error and returns a generic 500
// without leaking internals to the client.
func writeInternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credential.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, credential.ErrAccountExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, credential.ErrPassphraseTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a size-limited JSON body into T. On failure a 400 has
// already been written and ok is false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (req T, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}
