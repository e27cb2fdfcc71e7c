// Package models mirrors the JSON shapes of the chat server's API as the
// terminal client sees them.
package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Thread struct {
	ID          string          `json:"id"`
	Title       *string         `json:"title"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	LastMessage *MessagePreview `json:"lastMessage,omitempty"`
}

// DisplayTitle is the title or a placeholder for untitled threads.
func (t Thread) DisplayTitle() string {
	if t.Title == nil || *t.Title == "" {
		return "(untitled)"
	}
	return *t.Title
}

type MessagePreview struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Metadata  struct {
		Status      string       `json:"status,omitempty"`
		Attachments []Attachment `json:"attachments,omitempty"`
	} `json:"metadata"`
}

type Personalization struct {
	DisplayName  *string `json:"displayName"`
	Tone         *string `json:"tone"`
	Instructions *string `json:"instructions"`
	Model        *string `json:"model"`
}

// AttachmentUpload is an attachment as sent with a turn: Data is base64.
type AttachmentUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// Event is one frame of a streamed turn.
type Event struct {
	Content   string `json:"content,omitempty"`
	Done      bool   `json:"done,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}
