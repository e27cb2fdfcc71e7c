package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

// AttachmentArchive stores attachment bytes outside the database.
type AttachmentArchive interface {
	Save(ctx context.Context, userID, contentType string, data []byte) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type ThreadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	archive     AttachmentArchive
	staleAfter  time.Duration
	log         logging.Logger
}

// NewThreadService wires the thread store. archive may be nil. Streaming
// placeholders older than staleAfter are considered abandoned.
func NewThreadService(db *sql.DB, m repomanager.RepositoryManager, archive AttachmentArchive, staleAfter time.Duration, log logging.Logger) *ThreadService {
	return &ThreadService{db: db, repomanager: m, archive: archive, staleAfter: staleAfter, log: log}
}

func (s *ThreadService) Create(ctx context.Context, userID string, title *string) (*models.Thread, error) {
	var t *string
	if title != nil {
		t = strPtr(strings.TrimSpace(*title))
	}
	return s.repomanager.Threads(conn(s.db)).Create(ctx, userID, t)
}

func (s *ThreadService) List(ctx context.Context, userID string) ([]models.ThreadSummary, error) {
	return s.repomanager.Threads(conn(s.db)).ListByUser(ctx, userID)
}

// Messages returns a thread's history. Placeholders left streaming by a
// turn that died are flipped to failed first, and archived attachments get
// fresh download links.
func (s *ThreadService) Messages(ctx context.Context, userID, threadID string) ([]models.Message, error) {
	if !validID(threadID) {
		return nil, common.ErrorNotFound
	}
	if _, err := s.repomanager.Threads(conn(s.db)).GetOwned(ctx, threadID, userID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Messages(conn(s.db))

	n, err := repo.FailStale(ctx, threadID, now().Add(-s.staleAfter))
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.log.Warn(ctx, "failed abandoned placeholders", "thread_id", threadID, "count", n)
	}

	msgs, err := repo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		for i := range msgs {
			atts := msgs[i].Metadata.Attachments
			for j := range atts {
				if atts[j].StorageKey == "" {
					continue
				}
				url, err := s.archive.URL(ctx, atts[j].StorageKey)
				if err != nil {
					s.log.Warn(ctx, "presign attachment", "key", atts[j].StorageKey, "error", err)
					continue
				}
				atts[j].URL = url
			}
		}
	}

	return msgs, nil
}
