package llm

import (
	"context"
	"errors"
	"iter"
)

var ErrNotConfigured = errors.New("llm: model provider is not configured")

// Unavailable stands in when no API key is configured, so a local server
// still starts and every model call fails cleanly.
type Unavailable struct{}

func (Unavailable) Stream(context.Context, Request) iter.Seq2[string, error] {
	return once(func(yield func(string, error) bool) {
		yield("", ErrNotConfigured)
	})
}

func (Unavailable) Transcribe(context.Context, string, Part) (string, error) {
	return "", ErrNotConfigured
}
