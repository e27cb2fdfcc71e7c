package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	StatusStreaming = "streaming"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Message struct {
	ID        string          `json:"id"`
	ThreadID  string          `json:"threadId"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MessageMetadata is stored as a jsonb column.
type MessageMetadata struct {
	Status      string       `json:"status,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file sent with a user message. The bytes are never
// stored in the database; StorageKey points into the attachment archive
// when one is configured, and URL is filled in on read.
type Attachment struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	StorageKey string `json:"storageKey,omitempty"`
	URL        string `json:"url,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MessageMetadata) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = MessageMetadata{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(b) == 0 {
		*m = MessageMetadata{}
		return nil
	}
	return json.Unmarshal(b, m)
}
