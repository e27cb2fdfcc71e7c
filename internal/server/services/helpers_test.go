package services

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/inmemory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// fakeProvider replays fragments, then optionally fails or waits for the
// context to end.
type fakeProvider struct {
	mu        sync.Mutex
	fragments []string
	err       error
	block     bool
	requests  []llm.Request
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, s := range f.fragments {
			if !yield(s, nil) {
				return
			}
		}
		if f.block {
			<-ctx.Done()
			yield("", ctx.Err())
			return
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func (f *fakeProvider) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeArchive struct {
	saved   map[string][]byte
	saveErr error
}

func (a *fakeArchive) Save(_ context.Context, userID, contentType string, data []byte) (string, error) {
	if a.saveErr != nil {
		return "", a.saveErr
	}
	if a.saved == nil {
		a.saved = map[string][]byte{}
	}
	key := "attachments/" + userID + "/" + contentType
	a.saved[key] = data
	return key, nil
}

func (a *fakeArchive) URL(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("presign failed")
	}
	return "https://files.example/" + key, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Environment = config.EnvTest
	cfg.SecretKey = "test-secret"
	return cfg
}

type env struct {
	repos    *inmemory.RepositoryManager
	cfg      *config.Config
	provider *fakeProvider
	archive  *fakeArchive
	turns    *TurnService
	threads  *ThreadService
	users    *UserService
	alice    auth.Identity
	thread   *models.Thread
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		repos:    inmemory.NewRepositoryManager(),
		cfg:      testConfig(),
		provider: &fakeProvider{fragments: []string{"Hello", ", ", "world"}},
	}
	log := logging.Nop()
	issuer := auth.NewIssuer(e.cfg.SigningKey(), e.cfg.TokenValidityDuration, false)

	e.turns = NewTurnService(nil, e.repos, e.provider, nil, e.cfg, log)
	e.threads = NewThreadService(nil, e.repos, nil, e.cfg.TurnTimeout, log)
	e.users = NewUserService(nil, e.repos, issuer, e.cfg)

	u, _, err := e.users.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: "secret1", Name: "Alice"})
	require.NoError(t, err)
	e.alice = auth.Identity{UserID: u.ID, Email: u.Email, Name: "Alice"}

	e.thread, err = e.threads.Create(context.Background(), u.ID, nil)
	require.NoError(t, err)
	return e
}

func (e *env) withArchive() {
	e.archive = &fakeArchive{}
	e.turns.archive = e.archive
	e.threads.archive = e.archive
}

// collect runs a whole turn and records the emitted events.
func (e *env) collect(t *testing.T, req TurnRequest) ([]Event, *Turn, error) {
	t.Helper()
	turn, err := e.turns.Begin(context.Background(), e.alice, req)
	if err != nil {
		return nil, nil, err
	}
	var events []Event
	err = turn.Stream(context.Background(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, turn, err
}

func (e *env) messages(t *testing.T) []models.Message {
	t.Helper()
	msgs, err := e.repos.Messages(nil).ListByThread(context.Background(), e.thread.ID)
	require.NoError(t, err)
	return msgs
}

func pinNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}
