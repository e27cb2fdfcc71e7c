package handlers

import (
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

type settingsResponse struct {
	Personalization *models.Personalization `json:"personalization"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p, err := h.settings.Get(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{p})
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var in services.SettingsInput
	if err := decodeJSON(w, r, maxBodyBytes, true, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	p, err := h.settings.Put(r.Context(), identity(r).UserID, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{p})
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var in services.TranscribeInput
	if err := decodeJSON(w, r, maxTranscribeBodyBytes, false, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	text, err := h.transcription.Transcribe(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcription": text})
}
