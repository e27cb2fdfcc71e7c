package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/validation"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered in tests.
var bcryptCost = 12

// codeOnlyPasswordHash marks accounts that can only sign in with an access
// code. It is not a valid bcrypt hash, so password login always fails.
const codeOnlyPasswordHash = "!code-only"

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
}

// LoginInput carries either a code or an email and password, depending on
// the configured auth mode.
type LoginInput struct {
	Code     string `json:"code,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UserService registers accounts and turns credentials into session tokens.
// Exactly one login scheme is active, chosen by config.AuthMode.
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	issuer       *auth.Issuer
	authMode     string
	pepper       []byte
	defaultModel string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config) *UserService {
	return &UserService{
		db:           db,
		repomanager:  m,
		issuer:       issuer,
		authMode:     cfg.AuthMode,
		pepper:       cfg.CodePepper(),
		defaultModel: cfg.DefaultModel,
	}
}

func (s *UserService) AuthMode() string { return s.authMode }

// Register creates a user and their default personalization in one
// transaction and returns a session token for them.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if s.authMode != config.AuthModePassword {
		return nil, "", common.ErrorForbidden
	}

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: in.Email, Name: strPtr(in.Name), PasswordHash: string(hash)}

	err = inTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		_, err := s.repomanager.Personalizations(tx).Upsert(ctx, s.defaultPersonalization(user))
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", common.ErrorAlreadyExists
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) defaultPersonalization(u *models.User) *models.Personalization {
	display := deref(u.Name)
	if display == "" {
		display, _, _ = strings.Cut(u.Email, "@")
	}
	return &models.Personalization{
		UserID:      u.ID,
		DisplayName: strPtr(display),
		Tone:        strPtr(DefaultTone),
		Model:       strPtr(s.defaultModel),
	}
}

// Login dispatches to the scheme selected by the auth mode.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	if s.authMode == config.AuthModeAccessCode {
		return s.LoginCode(ctx, in.Code)
	}
	return s.LoginPassword(ctx, in.Email, in.Password)
}

// LoginPassword checks the bcrypt hash. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *UserService) LoginPassword(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", common.NewValidationError("email and password are required")
	}

	user, err := s.repomanager.Users(conn(s.db)).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", common.ErrorUnauthorized
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginCode redeems an access code. Only active codes resolve; a successful
// redemption stamps last_used_at.
func (s *UserService) LoginCode(ctx context.Context, code string) (*models.User, string, error) {
	if strings.TrimSpace(code) == "" {
		return nil, "", common.NewValidationError("code is required")
	}

	ac, err := s.repomanager.AccessCodes(conn(s.db)).GetActiveByHash(ctx, HashAccessCode(s.pepper, code))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", fmt.Errorf("lookup access code: %w", err)
	}

	user, err := s.repomanager.Users(conn(s.db)).GetByID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := s.repomanager.AccessCodes(conn(s.db)).TouchLastUsed(ctx, ac.ID); err != nil {
		return nil, "", fmt.Errorf("touch access code: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Me returns the stored account behind a session.
func (s *UserService) Me(ctx context.Context, id auth.Identity) (*models.User, error) {
	user, err := s.repomanager.Users(conn(s.db)).GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// accessCodeLen is the length of generated access codes.
const accessCodeLen = 10

var randRead = rand.Read

// GenerateAccessCode returns a random upper-case code without ambiguous
// padding characters.
func GenerateAccessCode() (string, error) {
	b := make([]byte, accessCodeLen)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return code[:accessCodeLen], nil
}

// CreateCodeUser provisions an account that signs in with code only.
func (s *UserService) CreateCodeUser(ctx context.Context, email, name, code, label string) (*models.User, error) {
	email = normalizeEmail(email)
	if strings.TrimSpace(code) == "" {
		return nil, common.NewValidationError("code is required")
	}

	user := &models.User{Email: email, Name: strPtr(strings.TrimSpace(name)), PasswordHash: codeOnlyPasswordHash}

	err := inTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		if _, err := s.repomanager.Personalizations(tx).Upsert(ctx, s.defaultPersonalization(user)); err != nil {
			return err
		}
		_, err := s.repomanager.AccessCodes(tx).Create(ctx, &models.AccessCode{
			UserID:   user.ID,
			CodeHash: HashAccessCode(s.pepper, code),
			Label:    strPtr(label),
			Active:   true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) issue(u *models.User) (string, error) {
	token, err := s.issuer.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Name: deref(u.Name)})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashAccessCode returns the hex HMAC-SHA256 of the normalized code
// (trimmed, upper-cased) under pepper.
func HashAccessCode(pepper []byte, code string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return hex.EncodeToString(mac.Sum(nil))
}
