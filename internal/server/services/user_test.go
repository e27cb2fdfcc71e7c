package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, mode string) (*UserService, *inmemory.RepositoryManager, *auth.Issuer) {
	t.Helper()
	cfg := testConfig()
	cfg.AuthMode = mode
	cfg.AccessCodePepper = "pepper"
	repos := inmemory.NewRepositoryManager()
	issuer := auth.NewIssuer(cfg.SigningKey(), cfg.TokenValidityDuration, false)
	return NewUserService(nil, repos, issuer, cfg), repos, issuer
}

func TestUserService_Register(t *testing.T) {
	s, repos, issuer := newUserService(t, config.AuthModePassword)
	ctx := context.Background()

	u, token, err := s.Register(ctx, RegisterInput{Email: "  Alice@Example.COM ", Password: "secret1", Name: " Alice "})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", *u.Name)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)

	p, err := repos.Personalizations(nil).Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *p.DisplayName)
	assert.Equal(t, DefaultTone, *p.Tone)
	assert.Equal(t, "gemini-2.0-flash-001", *p.Model)

	_, _, err = s.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "another"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUserService_RegisterDisplayNameFromEmail(t *testing.T) {
	s, repos, _ := newUserService(t, config.AuthModePassword)

	u, _, err := s.Register(context.Background(), RegisterInput{Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Nil(t, u.Name)

	p, err := repos.Personalizations(nil).Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", *p.DisplayName)
}

func TestUserService_RegisterValidation(t *testing.T) {
	s, _, _ := newUserService(t, config.AuthModePassword)

	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing email", RegisterInput{Password: "secret1"}, "email is required"},
		{"bad email", RegisterInput{Email: "nope", Password: "secret1"}, "invalid email"},
		{"short password", RegisterInput{Email: "a@b.co", Password: "123"}, "password must be at least 6 characters"},
		{"short name", RegisterInput{Email: "a@b.co", Password: "secret1", Name: "A"}, "name must be at least 2 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, common.ErrorValidation)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestUserService_RegisterForbiddenInCodeMode(t *testing.T) {
	s, _, _ := newUserService(t, config.AuthModeAccessCode)

	_, _, err := s.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestUserService_RegisterRunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	repos := inmemory.NewRepositoryManager()
	s := NewUserService(db, repos, auth.NewIssuer(cfg.SigningKey(), cfg.TokenValidityDuration, false), cfg)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, _, err = s.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, _, err = s.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_LoginPassword(t *testing.T) {
	s, _, _ := newUserService(t, config.AuthModePassword)
	ctx := context.Background()

	reg, _, err := s.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, token, err := s.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)
	assert.NotEmpty(t, token)

	_, _, err = s.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong!"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, _, err = s.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, _, err = s.Login(ctx, LoginInput{Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUserService_LoginCode(t *testing.T) {
	s, repos, issuer := newUserService(t, config.AuthModeAccessCode)
	ctx := context.Background()

	u, err := s.CreateCodeUser(ctx, "Dana@example.com", "Dana", "abc-123", "pilot")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", u.Email)

	got, token, err := s.Login(ctx, LoginInput{Code: "  abc-123 "})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Dana", id.Name)

	ac, err := repos.AccessCodes(nil).GetActiveByHash(ctx, HashAccessCode([]byte("pepper"), "ABC-123"))
	require.NoError(t, err)
	assert.NotNil(t, ac.LastUsedAt)

	_, _, err = s.Login(ctx, LoginInput{Code: "zzz"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, _, err = s.Login(ctx, LoginInput{Code: " "})
	assert.ErrorIs(t, err, common.ErrorValidation)

	// code-only accounts never pass a password check
	_, _, err = s.LoginPassword(ctx, "dana@example.com", codeOnlyPasswordHash)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUserService_CreateCodeUserDuplicateCode(t *testing.T) {
	s, _, _ := newUserService(t, config.AuthModeAccessCode)
	ctx := context.Background()

	_, err := s.CreateCodeUser(ctx, "a@example.com", "", "SAME", "")
	require.NoError(t, err)

	_, err = s.CreateCodeUser(ctx, "b@example.com", "", "same", "")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestGenerateAccessCode(t *testing.T) {
	a, err := GenerateAccessCode()
	require.NoError(t, err)
	b, err := GenerateAccessCode()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-7]{10}$`), a)
	assert.NotEqual(t, a, b)

	orig := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("no entropy") }
	t.Cleanup(func() { randRead = orig })

	_, err = GenerateAccessCode()
	assert.Error(t, err)
}

func TestUserService_Me(t *testing.T) {
	s, _, _ := newUserService(t, config.AuthModePassword)
	ctx := context.Background()

	reg, _, err := s.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := s.Me(ctx, auth.Identity{UserID: reg.ID})
	require.NoError(t, err)
	assert.Equal(t, reg.Email, u.Email)

	_, err = s.Me(ctx, auth.Identity{UserID: "deleted"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestHashAccessCode(t *testing.T) {
	p := []byte("pepper")
	assert.Equal(t, HashAccessCode(p, "abc"), HashAccessCode(p, " ABC "))
	assert.NotEqual(t, HashAccessCode(p, "abc"), HashAccessCode([]byte("other"), "abc"))
	assert.Len(t, HashAccessCode(p, "abc"), 64)
}
