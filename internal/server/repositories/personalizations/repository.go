package personalizations

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user never saved settings.
	Get(ctx context.Context, userID string) (*models.Personalization, error)
	// Upsert replaces every field of the user's personalization.
	Upsert(ctx context.Context, p *models.Personalization) (*models.Personalization, error)
}
