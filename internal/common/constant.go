package common

const (
	// AuthCookieName is the cookie carrying the session token.
	AuthCookieName = "auth_token"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "
)
