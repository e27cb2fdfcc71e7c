package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThread_DisplayTitle(t *testing.T) {
	empty := ""
	title := "Trip"
	assert.Equal(t, "(untitled)", Thread{}.DisplayTitle())
	assert.Equal(t, "(untitled)", Thread{Title: &empty}.DisplayTitle())
	assert.Equal(t, "Trip", Thread{Title: &title}.DisplayTitle())
}

func TestMessage_DecodesServerShape(t *testing.T) {
	raw := `{"id":"m1","threadId":"t1","role":"assistant","content":"hi",
		"metadata":{"status":"completed","attachments":[{"name":"a.png","type":"image/png","size":3,"url":"https://x"}]},
		"createdAt":"2026-01-01T00:00:00Z"}`

	var m Message
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, "completed", m.Metadata.Status)
	require.Len(t, m.Metadata.Attachments, 1)
	assert.Equal(t, "https://x", m.Metadata.Attachments[0].URL)
}
