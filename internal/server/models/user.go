package models

import "time"

// User is an account. Code-only accounts carry no usable password hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Personalization shapes the assistant for one user. Nil fields fall back
// to defaults.
type Personalization struct {
	UserID       string    `json:"-"`
	DisplayName  *string   `json:"displayName"`
	Tone         *string   `json:"tone"`
	Instructions *string   `json:"instructions"`
	Model        *string   `json:"model"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AccessCode struct {
	ID         string
	UserID     string
	CodeHash   string
	Label      *string
	Active     bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}
