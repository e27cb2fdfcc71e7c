// Package inmemory keeps every repository in process memory. It backs the
// "memory" DSN for local runs and the service and handler tests.
package inmemory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/accesscodes"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/personalizations"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/threads"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
	"github.com/google/uuid"
)

// store is shared by every repository a manager vends. One mutex guards it,
// which matches the single-row atomicity the services rely on.
type store struct {
	mu sync.Mutex

	users            map[string]*models.User
	personalizations map[string]*models.Personalization
	threads          map[string]*models.Thread
	messages         map[string][]*models.Message // by thread, insertion order
	accessCodes      map[string]*models.AccessCode

	now func() time.Time
}

// RepositoryManager satisfies repomanager.RepositoryManager. The DBTX passed
// to the factories is ignored, so callers may pass nil.
type RepositoryManager struct {
	s *store
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{s: &store{
		users:            map[string]*models.User{},
		personalizations: map[string]*models.Personalization{},
		threads:          map[string]*models.Thread{},
		messages:         map[string][]*models.Message{},
		accessCodes:      map[string]*models.AccessCode{},
		now:              func() time.Time { return time.Now().UTC() },
	}}
}

// SetClock replaces the time source used for timestamps.
func (m *RepositoryManager) SetClock(now func() time.Time) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.now = now
}

func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *RepositoryManager) Users(dbx.DBTX) users.Repository {
	return &userRepo{m.s}
}

func (m *RepositoryManager) Personalizations(dbx.DBTX) personalizations.Repository {
	return &personalizationRepo{m.s}
}

func (m *RepositoryManager) Threads(dbx.DBTX) threads.Repository {
	return &threadRepo{m.s}
}

func (m *RepositoryManager) Messages(dbx.DBTX) messages.Repository {
	return &messageRepo{m.s}
}

func (m *RepositoryManager) AccessCodes(dbx.DBTX) accesscodes.Repository {
	return &accessCodeRepo{m.s}
}

func newID() string {
	return uuid.NewString()
}
