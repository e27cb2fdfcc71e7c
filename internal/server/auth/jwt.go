// Package auth issues and verifies session tokens and carries the resolved
// identity through request contexts.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a valid session token asserts about its holder.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Claims embeds the registered claims (sub, iat, exp) plus email and name.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Issuer mints HS256 session tokens and manages the session cookie.
type Issuer struct {
	secret       []byte
	validity     time.Duration
	secureCookie bool
	now          func() time.Time
}

func NewIssuer(secret []byte, validity time.Duration, secureCookie bool) *Issuer {
	return &Issuer{secret: secret, validity: validity, secureCookie: secureCookie, now: time.Now}
}

// Issue signs a token for id that expires after the issuer's validity.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
		Email: id.Email,
		Name:  id.Name,
	})

	return token.SignedString(i.secret)
}

// Verify checks signature, algorithm and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// Resolve reads the session from the Authorization bearer header, then from
// the session cookie. A present but invalid bearer token does not fall back
// to the cookie. ok is false for anonymous callers.
func (i *Issuer) Resolve(r *http.Request) (Identity, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, common.BearerPrefix) {
		id, err := i.Verify(strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix)))
		return id, err == nil
	}

	c, err := r.Cookie(common.AuthCookieName)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}
	id, err := i.Verify(c.Value)
	return id, err == nil
}

// SetCookie stores token in the HTTP-only session cookie.
func (i *Issuer) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(i.validity.Seconds()),
		HttpOnly: true,
		Secure:   i.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (i *Issuer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
