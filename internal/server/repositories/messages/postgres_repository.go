package messages

import (
	"context"
	"fmt"
	"slices"
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

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query :=
		`INSERT INTO messages (thread_id, role, content, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.ThreadID, m.Role, m.Content, m.Metadata).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) Recent(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	query :=
		`SELECT id, thread_id, role, content, metadata, created_at FROM messages
		 WHERE thread_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2
		 `

	result, err := r.list(ctx, query, threadID, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(result)
	return result, nil
}

func (r *PostgresRepository) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	query :=
		`SELECT id, thread_id, role, content, metadata, created_at FROM messages
		 WHERE thread_id = $1
		 ORDER BY created_at ASC, seq ASC
		 `
	return r.list(ctx, query, threadID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Finalize(ctx context.Context, id, content, status string) error {
	query :=
		`UPDATE messages
		 SET content = $2, metadata = jsonb_set(metadata, '{status}', to_jsonb($3::text))
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, content, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) FailStale(ctx context.Context, threadID string, olderThan time.Time) (int64, error) {
	query :=
		`UPDATE messages
		 SET metadata = jsonb_set(metadata, '{status}', '"failed"')
		 WHERE thread_id = $1
		   AND role = 'assistant'
		   AND metadata->>'status' = 'streaming'
		   AND created_at < $2
		 `

	res, err := r.db.ExecContext(ctx, query, threadID, olderThan)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
