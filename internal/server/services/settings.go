package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/validation"
)

// SettingsInput replaces the whole personalization; absent or empty fields
// are stored as NULL and fall back to defaults at turn time.
type SettingsInput struct {
	DisplayName  *string `json:"displayName" validate:"omitempty,max=100"`
	Tone         *string `json:"tone" validate:"omitempty,max=50"`
	Instructions *string `json:"instructions" validate:"omitempty,max=10000"`
	Model        *string `json:"model" validate:"omitempty,max=50"`
}

type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager) *SettingsService {
	return &SettingsService{db: db, repomanager: m}
}

// Get returns nil without error when the user has never saved settings.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.Personalization, error) {
	p, err := s.repomanager.Personalizations(conn(s.db)).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *SettingsService) Put(ctx context.Context, userID string, in SettingsInput) (*models.Personalization, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p := &models.Personalization{
		UserID:       userID,
		DisplayName:  blankToNil(in.DisplayName),
		Tone:         blankToNil(in.Tone),
		Instructions: blankToNil(in.Instructions),
		Model:        blankToNil(in.Model),
	}
	return s.repomanager.Personalizations(conn(s.db)).Upsert(ctx, p)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(strings.TrimSpace(*s))
}
