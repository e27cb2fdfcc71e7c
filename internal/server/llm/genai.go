package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

const transcribePrompt = "Transcribe the audio above. Return ONLY the transcribed text, without any additional commentary."

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GenAIProvider talks to Gemini through google.golang.org/genai.
type GenAIProvider struct {
	stream   streamFunc
	generate generateFunc
}

// NewGenAIProvider creates a Gemini API client. The client holds no
// connections that need closing.
func NewGenAIProvider(ctx context.Context, apiKey string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIProvider{
		stream:   client.Models.GenerateContentStream,
		generate: client.Models.GenerateContent,
	}, nil
}

func (p *GenAIProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	contents, system := toContents(req)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return once(func(yield func(string, error) bool) {
		for resp, err := range p.stream(ctx, req.Model, contents, cfg) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	})
}

func (p *GenAIProvider) Transcribe(ctx context.Context, model string, audio Part) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio.Data, audio.MIMEType),
			genai.NewPartFromText(transcribePrompt),
		}, genai.RoleUser),
	}

	resp, err := p.generate(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// toContents maps the conversation onto Gemini contents. Gemini has no
// system role inside the conversation, so system messages are folded into
// the returned system instruction.
func toContents(req Request) ([]*genai.Content, string) {
	system := req.System
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if m.Text != "" {
				system = strings.TrimSpace(system + "\n\n" + m.Text)
			}
			continue
		}

		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, 1+len(m.Parts))
		if m.Text != "" {
			parts = append(parts, genai.NewPartFromText(m.Text))
		}
		for _, p := range m.Parts {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	return contents, system
}
