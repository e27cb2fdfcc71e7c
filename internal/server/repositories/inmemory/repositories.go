package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type userRepo struct{ s *store }

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	user.ID = newID()
	user.CreatedAt = r.s.now()
	cp := *user
	r.s.users[user.ID] = &cp
	return user, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type personalizationRepo struct{ s *store }

func (r *personalizationRepo) Get(_ context.Context, userID string) (*models.Personalization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.personalizations[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *personalizationRepo) Upsert(_ context.Context, p *models.Personalization) (*models.Personalization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.personalizations[p.UserID] = &cp
	return p, nil
}

type threadRepo struct{ s *store }

func (r *threadRepo) Create(_ context.Context, userID string, title *string) (*models.Thread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	t := &models.Thread{ID: newID(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	cp := *t
	r.s.threads[t.ID] = &cp
	return t, nil
}

func (r *threadRepo) GetOwned(_ context.Context, id, userID string) (*models.Thread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.threads[id]
	if !ok || t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *threadRepo) ListByUser(_ context.Context, userID string) ([]models.ThreadSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := []models.ThreadSummary{}
	for _, t := range r.s.threads {
		if t.UserID != userID {
			continue
		}
		s := models.ThreadSummary{Thread: *t}
		if msgs := r.s.messages[t.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			s.LastMessage = &models.MessagePreview{Content: last.Content, Role: last.Role, CreatedAt: last.CreatedAt}
		}
		result = append(result, s)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *threadRepo) SetTitle(_ context.Context, id, title string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.threads[id]; ok {
		t.Title = &title
	}
	return nil
}

func (r *threadRepo) Touch(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.threads[id]; ok {
		t.UpdatedAt = r.s.now()
	}
	return nil
}

type messageRepo struct{ s *store }

func copyMessage(m *models.Message) models.Message {
	cp := *m
	cp.Metadata.Attachments = append([]models.Attachment(nil), m.Metadata.Attachments...)
	return cp
}

func (r *messageRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m.ID = newID()
	m.CreatedAt = r.s.now()
	cp := copyMessage(m)
	r.s.messages[m.ThreadID] = append(r.s.messages[m.ThreadID], &cp)
	return m, nil
}

func (r *messageRepo) Recent(_ context.Context, threadID string, limit int) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msgs := r.s.messages[threadID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	result := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, copyMessage(m))
	}
	return result, nil
}

func (r *messageRepo) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	r.s.mu.Lock()
	n := len(r.s.messages[threadID])
	r.s.mu.Unlock()
	return r.Recent(ctx, threadID, n)
}

func (r *messageRepo) Finalize(_ context.Context, id, content, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, msgs := range r.s.messages {
		for _, m := range msgs {
			if m.ID == id {
				m.Content = content
				m.Metadata.Status = status
				return nil
			}
		}
	}
	return common.ErrorNotFound
}

func (r *messageRepo) FailStale(_ context.Context, threadID string, olderThan time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages[threadID] {
		if m.Role == models.RoleAssistant && m.Metadata.Status == models.StatusStreaming && m.CreatedAt.Before(olderThan) {
			m.Metadata.Status = models.StatusFailed
			n++
		}
	}
	return n, nil
}

type accessCodeRepo struct{ s *store }

func (r *accessCodeRepo) Create(_ context.Context, code *models.AccessCode) (*models.AccessCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.accessCodes {
		if c.CodeHash == code.CodeHash || c.UserID == code.UserID {
			return nil, common.ErrorAlreadyExists
		}
	}
	code.ID = newID()
	code.CreatedAt = r.s.now()
	cp := *code
	r.s.accessCodes[code.ID] = &cp
	return code, nil
}

func (r *accessCodeRepo) GetActiveByHash(_ context.Context, codeHash string) (*models.AccessCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.accessCodes {
		if c.CodeHash == codeHash && c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *accessCodeRepo) TouchLastUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c, ok := r.s.accessCodes[id]; ok {
		now := r.s.now()
		c.LastUsedAt = &now
	}
	return nil
}
