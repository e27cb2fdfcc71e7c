package threads

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, title *string) (*models.Thread, error)
	// GetOwned returns common.ErrorNotFound both for missing threads and for
	// threads that belong to another user.
	GetOwned(ctx context.Context, id, userID string) (*models.Thread, error)
	// ListByUser orders by updated_at, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.ThreadSummary, error)
	SetTitle(ctx context.Context, id, title string) error
	Touch(ctx context.Context, id string) error
}
