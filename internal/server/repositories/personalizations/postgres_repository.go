package personalizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Personalization, error) {
	query :=
		`SELECT user_id, display_name, tone, instructions, model, updated_at
		 FROM personalizations
		 WHERE user_id = $1
		 `

	p := &models.Personalization{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&p.UserID, &p.DisplayName, &p.Tone, &p.Instructions, &p.Model, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Personalization) (*models.Personalization, error) {
	query :=
		`INSERT INTO personalizations (user_id, display_name, tone, instructions, model)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   display_name = EXCLUDED.display_name,
		   tone = EXCLUDED.tone,
		   instructions = EXCLUDED.instructions,
		   model = EXCLUDED.model,
		   updated_at = now()
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.DisplayName, p.Tone, p.Instructions, p.Model).Scan(&p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
