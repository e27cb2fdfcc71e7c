package models

import "time"

type Thread struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ThreadSummary is a thread as shown in listings, with its newest message.
type ThreadSummary struct {
	Thread
	LastMessage *MessagePreview `json:"lastMessage,omitempty"`
}

type MessagePreview struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
