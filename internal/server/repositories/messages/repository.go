package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	// Recent returns up to limit newest messages of a thread, oldest first.
	Recent(ctx context.Context, threadID string, limit int) ([]models.Message, error)
	// ListByThread returns every message of a thread, oldest first.
	ListByThread(ctx context.Context, threadID string) ([]models.Message, error)
	// Finalize sets the content and status of an assistant placeholder.
	Finalize(ctx context.Context, id, content, status string) error
	// FailStale marks streaming placeholders created before olderThan as failed.
	FailStale(ctx context.Context, threadID string, olderThan time.Time) (int64, error)
}
