package threads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, userID string, title *string) (*models.Thread, error) {
	query :=
		`INSERT INTO threads (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at
		 `

	t := &models.Thread{UserID: userID, Title: title}
	err := r.db.QueryRowContext(ctx, query, userID, title).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (*models.Thread, error) {
	query :=
		`SELECT id, user_id, title, created_at, updated_at FROM threads
		 WHERE id = $1 AND user_id = $2
		 `

	t := &models.Thread{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.ThreadSummary, error) {
	query :=
		`SELECT t.id, t.user_id, t.title, t.created_at, t.updated_at,
		        m.content, m.role, m.created_at
		 FROM threads t
		 LEFT JOIN LATERAL (
		   SELECT content, role, created_at FROM messages
		   WHERE thread_id = t.id
		   ORDER BY created_at DESC, seq DESC
		   LIMIT 1
		 ) m ON true
		 WHERE t.user_id = $1
		 ORDER BY t.updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.ThreadSummary{}
	for rows.Next() {
		var (
			s         models.ThreadSummary
			content   sql.NullString
			role      sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt,
			&content, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if role.Valid {
			s.LastMessage = &models.MessagePreview{Content: content.String, Role: role.String, CreatedAt: createdAt.Time}
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) SetTitle(ctx context.Context, id, title string) error {
	query := `UPDATE threads SET title = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, title); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// now is overridable so tests can pin updated_at.
var now = time.Now

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE threads SET updated_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, now().UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
