package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// maxBodyBytes caps JSON bodies. The stream endpoint carries up to eight
// base64 attachments and transcribe one audio clip, so both get more room.
const (
	maxBodyBytes           = 1 << 20
	maxTranscribeBodyBytes = 32 << 20
	maxStreamBodyBytes     = 256 << 20
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to a status and a JSON body. Anything
// unrecognised is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{ve.Message})
	case errors.Is(err, common.ErrorValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{"unauthorized"})
	case errors.Is(err, common.ErrorForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{"forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{"not found"})
	case errors.Is(err, common.ErrorAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{"already exists"})
	case errors.Is(err, common.ErrProviderFailure):
		log.Error(r.Context(), "provider call failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{"model provider unavailable"})
	default:
		log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal server error"})
	}
}

// decodeJSON reads one JSON value from the body. An empty body decodes to
// the zero value when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, allowEmpty bool, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.Is(err, io.EOF):
		return common.NewValidationError("request body is required")
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewValidationError("request body exceeds %d bytes", tooLarge.Limit)
	}
	return common.NewValidationError("invalid JSON: %v", err)
}
