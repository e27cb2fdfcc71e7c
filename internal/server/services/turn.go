package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/validation"
)

const (
	ContextWindow      = 20
	MaxMessageChars    = 32000
	MaxAttachments     = 8
	MaxAttachmentBytes = 20 << 20
	TitleLimit         = 50
	DefaultTone        = "friendly"

	audioOnlyPrompt = "Transcribe the attached audio, then respond to what was said."
	finalizeTimeout = 5 * time.Second
)

type TurnState string

const (
	TurnValidating       TurnState = "validating"
	TurnContextAssembled TurnState = "context_assembled"
	TurnStreaming        TurnState = "streaming"
	TurnPersisted        TurnState = "persisted"
	TurnRejected         TurnState = "rejected"
	TurnFailed           TurnState = "failed"
)

type AttachmentInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Type string `json:"type" validate:"required,max=255"`
	Size int64  `json:"size"`
	Data string `json:"data" validate:"required"`
}

type TurnRequest struct {
	ThreadID    string            `json:"threadId" validate:"required"`
	Message     string            `json:"message" validate:"required_without=Attachments,max=32000"`
	Attachments []AttachmentInput `json:"attachments,omitempty" validate:"max=8,dive"`
}

// Event is one server-sent event of a turn: a fragment, the success
// terminal, or the failure terminal.
type Event struct {
	Content   string `json:"content,omitempty"`
	Done      bool   `json:"done,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TurnService runs chat turns: validate, assemble context, stream the
// model's reply and persist it. The user message, the assistant placeholder
// and the final update are three separate commits, so a failed turn keeps
// the user's input.
type TurnService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	provider        llm.Provider
	archive         AttachmentArchive
	timeout         time.Duration
	defaultModel    string
	multimodalModel string
	log             logging.Logger
}

func NewTurnService(db *sql.DB, m repomanager.RepositoryManager, provider llm.Provider, archive AttachmentArchive, cfg *config.Config, log logging.Logger) *TurnService {
	return &TurnService{
		db:              db,
		repomanager:     m,
		provider:        provider,
		archive:         archive,
		timeout:         cfg.TurnTimeout,
		defaultModel:    cfg.DefaultModel,
		multimodalModel: cfg.MultimodalModel,
		log:             log,
	}
}

// Turn is a validated turn whose user message and placeholder are stored.
// Stream drives it to a terminal state.
type Turn struct {
	svc         *TurnService
	deadline    time.Time
	request     llm.Request
	log         logging.Logger
	state       TurnState
	Thread      *models.Thread
	UserMessage *models.Message
	Placeholder *models.Message
}

func (t *Turn) State() TurnState { return t.state }

// Model is the model chosen for this turn.
func (t *Turn) Model() string { return t.request.Model }

type decodedAttachment struct {
	models.Attachment
	data []byte
}

// Begin validates the request and performs every write that precedes the
// model call. Nothing is written when it returns an error from validation
// or the ownership check.
func (s *TurnService) Begin(ctx context.Context, id auth.Identity, req TurnRequest) (*Turn, error) {
	deadline := now().Add(s.timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if id.UserID == "" {
		return nil, common.ErrorUnauthorized
	}

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return nil, common.NewValidationError("message is required")
	}
	attachments, err := decodeAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}

	if !validID(req.ThreadID) {
		return nil, common.ErrorNotFound
	}
	db := conn(s.db)
	thread, err := s.repomanager.Threads(db).GetOwned(ctx, req.ThreadID, id.UserID)
	if err != nil {
		return nil, err
	}

	log := s.log.With("thread_id", thread.ID, "user_id", id.UserID)

	history, err := s.repomanager.Messages(db).Recent(ctx, thread.ID, ContextWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	p, err := s.repomanager.Personalizations(db).Get(ctx, id.UserID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("load personalization: %w", err)
	}

	if s.archive != nil {
		for i := range attachments {
			key, err := s.archive.Save(ctx, id.UserID, attachments[i].Type, attachments[i].data)
			if err != nil {
				return nil, fmt.Errorf("archive attachment: %w", err)
			}
			attachments[i].StorageKey = key
		}
	}

	userMsg := &models.Message{
		ThreadID: thread.ID,
		Role:     models.RoleUser,
		Content:  req.Message,
	}
	for _, a := range attachments {
		userMsg.Metadata.Attachments = append(userMsg.Metadata.Attachments, a.Attachment)
	}
	if _, err := s.repomanager.Messages(db).Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	current := buildUserContent(req.Message, attachments)
	request := llm.Request{
		Model:    s.selectModel(p, len(current.Parts) > 0),
		System:   BuildSystemInstruction(p, id),
		Messages: append(historyToLLM(history), current),
	}

	placeholder := &models.Message{
		ThreadID: thread.ID,
		Role:     models.RoleAssistant,
		Metadata: models.MessageMetadata{Status: models.StatusStreaming},
	}
	if _, err := s.repomanager.Messages(db).Create(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("store placeholder: %w", err)
	}

	threads := s.repomanager.Threads(db)
	if len(history) == 0 && deref(thread.Title) == "" {
		title := DeriveTitle(titleSource(req.Message, attachments))
		if err := threads.SetTitle(ctx, thread.ID, title); err != nil {
			log.Warn(ctx, "set thread title", "error", err)
		} else {
			thread.Title = &title
		}
	}
	if err := threads.Touch(ctx, thread.ID); err != nil {
		log.Warn(ctx, "touch thread", "error", err)
	}

	log.Debug(ctx, "turn assembled",
		"model", request.Model, "history", len(history), "attachments", len(attachments))

	return &Turn{
		svc:         s,
		deadline:    deadline,
		request:     request,
		log:         log.With("message_id", placeholder.ID),
		state:       TurnContextAssembled,
		Thread:      thread,
		UserMessage: userMsg,
		Placeholder: placeholder,
	}, nil
}

// Stream relays fragments through emit as they arrive and settles the
// placeholder. It always ends with exactly one terminal event: done on
// success, error otherwise. The returned error wraps
// common.ErrProviderFailure when the turn failed.
func (t *Turn) Stream(ctx context.Context, emit func(Event) error) error {
	if t.state != TurnContextAssembled {
		return fmt.Errorf("turn in state %s cannot stream", t.state)
	}
	t.state = TurnStreaming

	ctx, cancel := context.WithDeadline(ctx, t.deadline)
	defer cancel()

	var acc strings.Builder
	for frag, err := range t.svc.provider.Stream(ctx, t.request) {
		if err != nil {
			return t.fail(ctx, &acc, err, emit)
		}
		if frag == "" {
			continue
		}
		acc.WriteString(frag)
		if err := emit(Event{Content: frag}); err != nil {
			return t.fail(ctx, &acc, fmt.Errorf("emit: %w", err), emit)
		}
	}
	if err := ctx.Err(); err != nil {
		return t.fail(ctx, &acc, err, emit)
	}

	if err := t.finalize(ctx, acc.String(), models.StatusCompleted); err != nil {
		return t.fail(ctx, &acc, fmt.Errorf("finalize: %w", err), emit)
	}
	t.state = TurnPersisted

	t.log.Info(ctx, "turn persisted", "chars", acc.Len())
	_ = emit(Event{Done: true, MessageID: t.Placeholder.ID})
	return nil
}

func (t *Turn) fail(ctx context.Context, acc *strings.Builder, cause error, emit func(Event) error) error {
	t.state = TurnFailed

	if err := t.finalize(ctx, acc.String(), models.StatusFailed); err != nil {
		t.log.Error(ctx, "mark placeholder failed", "error", err)
	}

	msg := "stream failed"
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "response timed out"
	}
	t.log.Error(ctx, "turn failed", "error", cause, "partial_chars", acc.Len())
	_ = emit(Event{Error: msg})

	return fmt.Errorf("%w: %w", common.ErrProviderFailure, cause)
}

// finalize writes on a context detached from request cancellation so the
// placeholder still settles after a disconnect or timeout.
func (t *Turn) finalize(ctx context.Context, content, status string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	return t.svc.repomanager.Messages(conn(t.svc.db)).Finalize(ctx, t.Placeholder.ID, content, status)
}

func (s *TurnService) selectModel(p *models.Personalization, multimodal bool) string {
	if multimodal && s.multimodalModel != "" {
		return s.multimodalModel
	}
	if p != nil && deref(p.Model) != "" {
		return *p.Model
	}
	return s.defaultModel
}

// BuildSystemInstruction renders the assistant persona from personalization,
// falling back to the session's name and then the email local part.
func BuildSystemInstruction(p *models.Personalization, id auth.Identity) string {
	tone := DefaultTone
	var name, instructions string
	if p != nil {
		if v := deref(p.Tone); v != "" {
			tone = v
		}
		name = deref(p.DisplayName)
		instructions = deref(p.Instructions)
	}
	if name == "" {
		name = id.Name
	}
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}

	s := fmt.Sprintf("You are a helpful and %s AI assistant. The user's name is %s.", tone, name)
	if instructions != "" {
		s += "\n\nSpecific instructions:\n" + instructions
	}
	return s
}

// DeriveTitle keeps the first TitleLimit characters of text and marks the
// cut with "...".
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= TitleLimit {
		return text
	}
	return string(runes[:TitleLimit]) + "..."
}

func titleSource(message string, atts []decodedAttachment) string {
	if strings.TrimSpace(message) == "" && len(atts) > 0 {
		return atts[0].Name
	}
	return message
}

func decodeAttachments(in []AttachmentInput) ([]decodedAttachment, error) {
	out := make([]decodedAttachment, 0, len(in))
	for _, a := range in {
		data, err := base64.StdEncoding.DecodeString(stripDataURL(a.Data))
		if err != nil {
			return nil, common.NewValidationError("attachment %q: data must be base64 encoded", a.Name)
		}
		if len(data) > MaxAttachmentBytes {
			return nil, common.NewValidationError("attachment %q exceeds %d MiB", a.Name, MaxAttachmentBytes>>20)
		}
		out = append(out, decodedAttachment{
			Attachment: models.Attachment{Name: a.Name, Type: a.Type, Size: int64(len(data))},
			data:       data,
		})
	}
	return out, nil
}

// stripDataURL accepts "data:<mime>;base64,<payload>" as well as a bare payload.
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			return payload
		}
	}
	return s
}

func inlineType(mime string) bool {
	return strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "audio/")
}

// buildUserContent turns the new message into provider input: image and
// audio attachments travel inline after the text, other files are only
// named.
func buildUserContent(text string, atts []decodedAttachment) llm.Message {
	msg := llm.Message{Role: llm.RoleUser}

	var named []string
	hasAudio := false
	for _, a := range atts {
		if inlineType(a.Type) {
			msg.Parts = append(msg.Parts, llm.Part{MIMEType: a.Type, Data: a.data})
			hasAudio = hasAudio || strings.HasPrefix(a.Type, "audio/")
			continue
		}
		named = append(named, fmt.Sprintf("%s (%s)", a.Name, a.Type))
	}

	if strings.TrimSpace(text) == "" && hasAudio {
		text = audioOnlyPrompt
	}
	if len(named) > 0 {
		note := "Attached files: " + strings.Join(named, ", ")
		if text == "" {
			text = note
		} else {
			text += "\n\n" + note
		}
	}
	msg.Text = text
	return msg
}

// historyToLLM drops empty assistant rows, which are placeholders of turns
// still running or never completed.
func historyToLLM(history []models.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == models.RoleAssistant && m.Content == "" {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Text: m.Content})
	}
	return out
}
