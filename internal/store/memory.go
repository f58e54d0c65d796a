package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/resumark/internal/model"
	"github.com/google/uuid"
)

// MemoryStore keeps resumes in process memory. Contents are lost on restart.
type MemoryStore struct { // implements ResumeStore
	baseURL string

	mu      sync.RWMutex
	resumes map[model.ResumeID]*model.Resume
	tokens  map[model.ResumeID]string
	shares  sync.Map // token -> model.ResumeID
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		resumes: make(map[model.ResumeID]*model.Resume),
		tokens:  make(map[model.ResumeID]string),
	}
}

func (m *MemoryStore) persistLocked(draft model.Draft, now time.Time) *model.Resume {
	next := resumeFromDraft(draft)
	next.CreatedDate = now
	next.ModifiedDate = now

	if prev, ok := m.resumes[draft.ID]; ok {
		next.CreatedDate = prev.CreatedDate
		next.SharedDate = prev.SharedDate
		if next.Owner == "" {
			next.Owner = prev.Owner
		}
	}

	m.resumes[draft.ID] = &next
	return &next
}

func (m *MemoryStore) Persist(ctx context.Context, draft model.Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.persistLocked(draft, time.Now().UTC())
	return nil
}

func (m *MemoryStore) Share(ctx context.Context, draft model.Draft) (model.ShareLink, error) {
	if err := ctx.Err(); err != nil {
		return model.ShareLink{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	resume := m.persistLocked(draft, now)
	if resume.SharedDate.IsZero() {
		resume.SharedDate = now
	}

	token, ok := m.tokens[draft.ID]
	if !ok {
		token = uuid.New().String()
		m.tokens[draft.ID] = token
		m.shares.Store(token, draft.ID)
	}

	return model.ShareLink{
		Token:    token,
		ResumeID: draft.ID,
		URL:      shareURL(m.baseURL, token),
		Created:  resume.SharedDate,
	}, nil
}

func (m *MemoryStore) FetchByID(_ context.Context, id model.ResumeID) (*model.Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resume, ok := m.resumes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	clone := *resume
	return &clone, nil
}

func (m *MemoryStore) ListShared(_ context.Context) ([]model.Resume, error) {
	m.mu.RLock()
	resumes := make([]model.Resume, 0, len(m.tokens))
	for _, resume := range m.resumes {
		if resume.IsShared() {
			resumes = append(resumes, *resume)
		}
	}
	m.mu.RUnlock()

	sortBySharedDate(resumes)
	return resumes, nil
}

func (m *MemoryStore) ResolveShare(_ context.Context, token string) (model.ResumeID, error) {
	if id, ok := m.shares.Load(token); ok {
		return id.(model.ResumeID), nil
	}
	return "", fmt.Errorf("%w: share %s", ErrNotFound, token)
}
