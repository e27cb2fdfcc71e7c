// Package handlers exposes the chat services over HTTP. Every route lives
// under /api; all but register and login require a session.
package handlers

import (
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/gorilla/mux"
)

type Handler struct {
	users         *services.UserService
	threads       *services.ThreadService
	turns         *services.TurnService
	settings      *services.SettingsService
	transcription *services.TranscriptionService
	issuer        *auth.Issuer
	log           logging.Logger
}

type Deps struct {
	Users         *services.UserService
	Threads       *services.ThreadService
	Turns         *services.TurnService
	Settings      *services.SettingsService
	Transcription *services.TranscriptionService
	Issuer        *auth.Issuer
	Logger        logging.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		users:         d.Users,
		threads:       d.Threads,
		turns:         d.Turns,
		settings:      d.Settings,
		transcription: d.Transcription,
		issuer:        d.Issuer,
		log:           d.Logger.With("module", "http"),
	}
}

// NewRouter wires routes and middleware.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(h.log), Recoverer(h.log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(Authenticate(h.issuer))
	private.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	private.HandleFunc("/chat/threads", h.ListThreads).Methods(http.MethodGet)
	private.HandleFunc("/chat/threads", h.CreateThread).Methods(http.MethodPost)
	private.HandleFunc("/chat/threads/{threadId}/messages", h.ListMessages).Methods(http.MethodGet)
	private.HandleFunc("/chat/stream", h.Stream).Methods(http.MethodPost)
	private.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	private.HandleFunc("/settings", h.PutSettings).Methods(http.MethodPut)
	private.HandleFunc("/transcribe", h.Transcribe).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{"not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{"method not allowed"})
	})

	return r
}

// identity is set by Authenticate on every private route.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
