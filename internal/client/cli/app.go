// Package cli is the interactive terminal client for the chat server.
//
// App wires the client configuration, the local session store and the HTTP
// API client, then runs a line-oriented REPL: plain lines are chat messages
// streamed to the current thread, lines starting with "/" are commands.
// The login token is kept in the local session database so a restart does
// not require logging in again.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophchat/internal/common"

	_ "modernc.org/sqlite"
)

var errSessionExpired = errors.New("session expired, please /login again")

type App struct {
	api      *client.Client
	sessions session.Repository
	db       *sql.DB
	reader   *bufio.Reader
	out      io.Writer

	email       string
	threadID    string
	threadTitle string
	threads     []models.Thread
	attachments []models.Attachment
	pending     []models.AttachmentUpload
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api, err := client.New(c.ServerURL, c.RequestTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := newApp(api, session.NewSQLiteRepository(db), os.Stdin, os.Stdout)
	a.db = db
	return a, nil
}

func newApp(api *client.Client, sessions session.Repository, in io.Reader, out io.Writer) *App {
	return &App{
		api:      api,
		sessions: sessions,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

// Run restores the saved session and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) error {
	if a.db != nil {
		defer a.db.Close()
	}

	if err := a.restore(ctx); err != nil {
		return err
	}

	printlnFn("GophChat CLI (type /help for commands)")
	if a.isLoggedIn() {
		printlnFn("Logged in as", a.email)
	}
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) restore(ctx context.Context) error {
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if !s.LoggedIn(a.api.BaseURL()) {
		return nil
	}
	a.api.SetToken(s.Token)
	a.email = s.Email
	a.threadID = s.ThreadID
	return nil
}

func (a *App) save(ctx context.Context) error {
	return a.sessions.Save(ctx, session.Session{
		ServerURL: a.api.BaseURL(),
		Token:     a.api.Token(),
		Email:     a.email,
		ThreadID:  a.threadID,
	})
}

// forget drops the local login, e.g. after the server rejected the token.
func (a *App) forget(ctx context.Context) error {
	a.api.SetToken("")
	a.email = ""
	a.threadID = ""
	a.threadTitle = ""
	a.threads = nil
	a.attachments = nil
	a.pending = nil
	return a.sessions.Clear(ctx)
}

// check clears the session when the server no longer accepts the token.
func (a *App) check(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorUnauthorized) && a.isLoggedIn() {
		if cerr := a.forget(ctx); cerr != nil {
			return errors.Join(err, cerr)
		}
		return errSessionExpired
	}
	return err
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(not logged in)"
	}
	s := a.email
	if a.threadID != "" {
		title := a.threadTitle
		if title == "" {
			title = "thread"
		}
		s += " | " + title
	}
	if n := len(a.pending); n > 0 {
		s += fmt.Sprintf(" | %d attached", n)
	}
	return "(" + s + ")"
}

// describe turns client errors into text for the terminal.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	}
	return err.Error()
}
