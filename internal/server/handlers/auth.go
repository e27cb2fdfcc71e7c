package handlers

import (
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

type userResponse struct {
	User *models.User `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, maxBodyBytes, false, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, token, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.issuer.SetCookie(w, token)
	h.log.Info(r.Context(), "user registered", "user_id", user.ID)
	writeJSON(w, http.StatusOK, userResponse{user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, maxBodyBytes, false, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, token, err := h.users.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.issuer.SetCookie(w, token)
	h.log.Info(r.Context(), "user logged in", "user_id", user.ID, "mode", h.users.AuthMode())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.issuer.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{user})
}
