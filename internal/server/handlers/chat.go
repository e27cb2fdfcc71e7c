package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/gorilla/mux"
)

type createThreadRequest struct {
	Title *string `json:"title"`
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.threads.List(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.ThreadSummary{"threads": threads})
}

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var in createThreadRequest
	if err := decodeJSON(w, r, maxBodyBytes, true, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	thread, err := h.threads.Create(r.Context(), identity(r).UserID, in.Title)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.Thread{"thread": thread})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.threads.Messages(r.Context(), identity(r).UserID, mux.Vars(r)["threadId"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Message{"messages": msgs})
}

// Stream runs one chat turn. Rejections before the first write are plain
// JSON errors; once the event stream is open, failures arrive as an
// {error} event and the stream closes.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	var req services.TurnRequest
	if err := decodeJSON(w, r, maxStreamBodyBytes, false, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	turn, err := h.turns.Begin(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	sse := newSSEWriter(w)
	err = turn.Stream(r.Context(), func(ev services.Event) error {
		return sse.Send(ev)
	})
	if err != nil && !errors.Is(err, common.ErrProviderFailure) {
		h.log.Error(r.Context(), "stream turn", "error", err)
	}
}
