package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/validation"
)

const defaultAudioMIME = "audio/webm"

type TranscribeInput struct {
	AudioData string `json:"audioData" validate:"required"`
	MimeType  string `json:"mimeType,omitempty" validate:"omitempty,max=100"`
}

type TranscriptionService struct {
	transcriber llm.Transcriber
	model       string
}

func NewTranscriptionService(t llm.Transcriber, model string) *TranscriptionService {
	return &TranscriptionService{transcriber: t, model: model}
}

func (s *TranscriptionService) Transcribe(ctx context.Context, in TranscribeInput) (string, error) {
	if err := validation.Struct(in); err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(in.AudioData)
	if err != nil {
		return "", common.NewValidationError("audioData must be base64 encoded")
	}
	if len(data) > MaxAttachmentBytes {
		return "", common.NewValidationError("audio exceeds %d MiB", MaxAttachmentBytes>>20)
	}

	mime := in.MimeType
	if mime == "" {
		mime = defaultAudioMIME
	}

	text, err := s.transcriber.Transcribe(ctx, s.model, llm.Part{MIMEType: mime, Data: data})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrProviderFailure, err)
	}
	return text, nil
}
