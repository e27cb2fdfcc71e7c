package accesscodes

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.AccessCode) (*models.AccessCode, error)
	// GetActiveByHash returns common.ErrorNotFound for unknown and inactive codes alike.
	GetActiveByHash(ctx context.Context, codeHash string) (*models.AccessCode, error)
	TouchLastUsed(ctx context.Context, id string) error
}
