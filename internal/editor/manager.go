package editor

import (
	"context"
	"time"

	"github.com/debemdeboas/resumark/internal/cache"
	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/google/uuid"
)

// Manager keeps the open sessions keyed by draft id.
type Manager struct {
	store       Store
	opts        Options
	idleTimeout time.Duration
	sessions    *cache.Cache[model.ResumeID, *Session]
}

func NewManager(store Store, cfg config.EditorConfig, listener func(Event), metrics *Metrics) *Manager {
	return &Manager{
		store: store,
		opts: Options{
			AutosaveDelay:        cfg.AutosaveDelay(),
			NotificationDuration: cfg.NotificationDuration(),
			StoreTimeout:         cfg.StoreTimeout(),
			Listener:             listener,
			Metrics:              metrics,
		},
		idleTimeout: cfg.SessionIdleTimeout(),
		sessions:    cache.NewCache[model.ResumeID, *Session](),
	}
}

// Open starts a session for a new, empty draft.
func (m *Manager) Open(owner model.UserID) *Session {
	return m.OpenDraft(model.Draft{
		ID:    model.ResumeID(uuid.New().String()),
		Owner: owner,
	})
}

// OpenDraft returns the open session for draft.ID, or starts one seeded with
// the draft.
func (m *Manager) OpenDraft(draft model.Draft) *Session {
	opened := false
	s := m.sessions.Update(draft.ID, func(current *Session, ok bool) *Session {
		if ok && !current.Closed() {
			return current
		}
		opened = true
		return NewSession(draft, m.store, m.opts)
	})

	if opened {
		editorLogger.Debug().Str("draft_id", string(draft.ID)).Msg("Editor session opened")
	}
	return s
}

func (m *Manager) Get(id model.ResumeID) (*Session, bool) {
	s, ok := m.sessions.Get(id)
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

func (m *Manager) CloseSession(id model.ResumeID) {
	if s, ok := m.sessions.Take(id); ok {
		s.Close()
	}
}

// Sweep closes sessions idle since before now minus the idle timeout and
// returns how many it closed.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}

	closed := 0
	for _, s := range m.sessions.Values() {
		if now.Sub(s.LastActive()) >= m.idleTimeout {
			m.CloseSession(s.ID())
			closed++
		}
	}

	if closed > 0 {
		editorLogger.Info().Int("closed", closed).Int("open", m.sessions.Len()).Msg("Closed idle editor sessions")
	}
	return closed
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}

	interval := m.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.Sweep(now)
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	sessions := m.sessions.Drain()
	for _, s := range sessions {
		s.Close()
	}

	editorLogger.Info().Int("sessions", len(sessions)).Msg("Closed all editor sessions")
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}
