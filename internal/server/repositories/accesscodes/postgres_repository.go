package accesscodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.AccessCode) (*models.AccessCode, error) {
	query :=
		`INSERT INTO access_codes (user_id, code_hash, label, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		code.UserID, code.CodeHash, code.Label, code.Active).Scan(&code.ID, &code.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return code, nil
}

func (r *PostgresRepository) GetActiveByHash(ctx context.Context, codeHash string) (*models.AccessCode, error) {
	query :=
		`SELECT id, user_id, code_hash, label, active, last_used_at, created_at
		 FROM access_codes
		 WHERE code_hash = $1 AND active
		 `

	c := &models.AccessCode{}
	err := r.db.QueryRowContext(ctx, query, codeHash).
		Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Label, &c.Active, &c.LastUsedAt, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE access_codes SET last_used_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
