// Package llm is the boundary to the hosted language model. The turn
// pipeline only sees Provider: a system instruction and an ordered message
// list go in, a finite lazy sequence of text fragments comes out.
package llm

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var ErrStreamConsumed = errors.New("llm: stream already consumed")

// Part is inline binary content such as an image or an audio clip.
type Part struct {
	MIMEType string
	Data     []byte
}

type Message struct {
	Role  string
	Text  string
	Parts []Part
}

type Request struct {
	Model    string
	System   string
	Messages []Message
}

// Provider streams a completion. The returned sequence yields fragments in
// order and may be ranged over only once; a second pass yields
// ErrStreamConsumed. Breaking out of the loop cancels the upstream call.
type Provider interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Transcriber turns an audio clip into text with a single non-streaming call.
type Transcriber interface {
	Transcribe(ctx context.Context, model string, audio Part) (string, error)
}

// once wraps seq so that it can be consumed a single time.
func once(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}
