package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
)

var now = time.Now

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) (Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx,
		`SELECT server_url, token, email, thread_id, updated_at FROM session WHERE id = 1`,
	).Scan(&s.ServerURL, &s.Token, &s.Email, &s.ThreadID, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// Save replaces the stored session and stamps UpdatedAt.
func (r *SQLiteRepository) Save(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (id, server_url, token, email, thread_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			server_url = excluded.server_url,
			token      = excluded.token,
			email      = excluded.email,
			thread_id  = excluded.thread_id,
			updated_at = excluded.updated_at
	`, s.ServerURL, s.Token, s.Email, s.ThreadID, now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
