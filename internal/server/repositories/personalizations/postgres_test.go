package personalizations

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	getQ    = `(?s)^SELECT\s+user_id,\s*display_name,\s*tone,\s*instructions,\s*model,\s*updated_at\s+FROM\s+personalizations\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	upsertQ = `(?s)^INSERT\s+INTO\s+personalizations\s*\(user_id,\s*display_name,\s*tone,\s*instructions,\s*model\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*ON\s+CONFLICT\s*\(user_id\)\s*DO\s+UPDATE\s+SET.*RETURNING\s+updated_at\s*$`
)

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "display_name", "tone", "instructions", "model", "updated_at"}).
		AddRow("u-1", nil, "formal", "Answer briefly.", nil, time.Now())
	mock.ExpectQuery(getQ).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.DisplayName != nil || got.Model != nil {
		t.Fatalf("expected nil fields, got %+v", got)
	}
	if got.Tone == nil || *got.Tone != "formal" || *got.Instructions != "Answer briefly." {
		t.Fatalf("unexpected personalization: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("u-1").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u-1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(upsertQ).
		WithArgs("u-1", "Al", "formal", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	dn, tone := "Al", "formal"
	got, err := repo.Upsert(context.Background(), &models.Personalization{UserID: "u-1", DisplayName: &dn, Tone: &tone})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at not scanned: %v", got.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), &models.Personalization{UserID: "u-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
