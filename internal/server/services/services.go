// Package services contains server-side business logic: accounts and
// sessions, personalization, threads, transcription and the chat turn
// pipeline. Services are transport-agnostic; HTTP handlers sit on top.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/google/uuid"
)

// now is a seam for tests.
var now = time.Now

// inTx runs fn in a transaction. Without a database (the in-memory store)
// fn runs directly.
func inTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, db, nil, fn)
}

// conn returns db as a DBTX, or nil when there is no database.
func conn(db *sql.DB) dbx.DBTX {
	if db == nil {
		return nil
	}
	return db
}

// validID reports whether id can be a row id. Malformed ids are answered
// with not found rather than a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
