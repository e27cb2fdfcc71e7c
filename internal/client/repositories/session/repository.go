// Package session persists the terminal client's login between runs: the
// server it belongs to, the bearer token and the thread in use.
package session

import (
	"context"
	"time"
)

type Session struct {
	ServerURL string
	Token     string
	Email     string
	ThreadID  string
	UpdatedAt time.Time
}

// LoggedIn reports whether the session carries a token for serverURL.
// Tokens are never sent to a different server.
func (s Session) LoggedIn(serverURL string) bool {
	return s.Token != "" && s.ServerURL == serverURL
}

type Repository interface {
	// Load returns the zero Session when nothing was saved yet.
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
