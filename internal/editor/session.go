package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/resumark/internal/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

// Store is what a session needs from the resume store.
type Store interface {
	Persist(ctx context.Context, draft model.Draft) error
	Share(ctx context.Context, draft model.Draft) (model.ShareLink, error)
}

// Options configure a Session. Zero durations fall back to the defaults.
type Options struct {
	AutosaveDelay        time.Duration
	NotificationDuration time.Duration
	StoreTimeout         time.Duration

	// Listener receives every status and notification change. It is called
	// with session locks held and must not block or call into the session.
	Listener func(Event)

	Metrics *Metrics
}

const (
	DefaultAutosaveDelay        = 2000 * time.Millisecond
	DefaultNotificationDuration = 3000 * time.Millisecond
	DefaultStoreTimeout         = 10 * time.Second
)

const (
	msgTitleRequired = "Please add a title before saving."
	msgNothingToSave = "Nothing to save yet. Start writing your resume."
	msgSaved         = "Resume saved."
	msgSaveFailed    = "Could not save your resume. Try again."
	msgShareRequired = "Add a title and some content before sharing."
	msgShared        = "Share link ready: "
	msgShareFailed   = "Could not create a share link. Try again."
)

const persistKey = "persist"

// Session is the editor state controller for one draft. All methods are safe
// for concurrent use.
type Session struct {
	id    model.ResumeID
	store Store
	opts  Options
	log   zerolog.Logger

	mu         sync.Mutex
	title      string
	content    string
	owner      model.UserID
	status     SaveStatus
	pending    bool
	mode       ViewMode
	revision   uint64
	contentSeq uint64
	titleSeq   uint64
	closed     bool
	lastActive time.Time

	debouncer *Debouncer
	notifier  *Notifier
	flight    singleflight.Group
}

// NewSession opens a session over draft. The draft's current text counts as
// saved.
func NewSession(draft model.Draft, store Store, opts Options) *Session {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.NotificationDuration <= 0 {
		opts.NotificationDuration = DefaultNotificationDuration
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Listener == nil {
		opts.Listener = func(Event) {}
	}

	s := &Session{
		id:         draft.ID,
		store:      store,
		opts:       opts,
		log:        editorLogger.With().Str("draft_id", string(draft.ID)).Logger(),
		title:      draft.Title,
		content:    draft.Content,
		owner:      draft.Owner,
		status:     StatusSaved,
		mode:       ModeEdit,
		lastActive: time.Now(),
		debouncer:  NewDebouncer(opts.AutosaveDelay),
	}

	s.notifier = NewNotifier(opts.NotificationDuration, func(n Notification) {
		kind := EventNotification
		if !n.Visible {
			kind = EventDismiss
		}
		s.opts.Listener(Event{Kind: kind, DraftID: s.id, Notification: &n})
	})

	opts.Metrics.sessionOpened()
	return s
}

func (s *Session) ID() model.ResumeID {
	return s.id
}

func (s *Session) Owner() model.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// SetOwner records the signed in user; later persists are attributed to them.
func (s *Session) SetOwner(owner model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) draftLocked() model.Draft {
	return model.Draft{
		ID:      s.id,
		Title:   s.title,
		Content: s.content,
		Owner:   s.owner,
	}
}

func (s *Session) emitStatusLocked() {
	if s.closed {
		return
	}
	s.opts.Listener(Event{
		Kind:    EventStatus,
		DraftID: s.id,
		Status:  s.status.String(),
		Pending: s.pending,
	})
}

// UpdateContent replaces the content and restarts the autosave window.
func (s *Session) UpdateContent(text string) error {
	_, err := s.UpdateContentAt(0, text)
	return err
}

// UpdateContentAt is UpdateContent for an edit numbered seq by the client.
// An edit numbered at or below the last applied one arrived out of order and
// is dropped; applied reports whether the text was taken. Zero is unnumbered
// and always applies.
func (s *Session) UpdateContentAt(seq uint64, text string) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	if !acceptSeq(&s.contentSeq, seq) {
		s.log.Debug().Uint64("seq", seq).Uint64("last_seq", s.contentSeq).Msg("Dropping out of order content update")
		return false, nil
	}

	s.content = text
	s.revision++
	s.lastActive = time.Now()

	if !s.pending {
		s.pending = true
		s.emitStatusLocked()
	}

	s.debouncer.Debounce(s.autosave)
	return true, nil
}

// UpdateTitle replaces the title. It does not schedule a save.
func (s *Session) UpdateTitle(text string) error {
	_, err := s.UpdateTitleAt(0, text)
	return err
}

// UpdateTitleAt is UpdateTitle with the ordering rule of UpdateContentAt.
func (s *Session) UpdateTitleAt(seq uint64, text string) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	if !acceptSeq(&s.titleSeq, seq) {
		s.log.Debug().Uint64("seq", seq).Uint64("last_seq", s.titleSeq).Msg("Dropping out of order title update")
		return false, nil
	}

	s.title = text
	s.revision++
	s.lastActive = time.Now()
	return true, nil
}

func acceptSeq(last *uint64, seq uint64) bool {
	if seq == 0 {
		return true
	}
	if seq <= *last {
		return false
	}
	*last = seq
	return true
}

func (s *Session) autosave() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	empty := isBlank(s.content)
	s.mu.Unlock()

	if empty {
		s.log.Debug().Msg("Skipping autosave of empty content")
		s.opts.Metrics.observeSkip("empty_content")
		return
	}

	err := s.save(context.Background(), TriggerAutosave)
	switch {
	case errors.Is(err, ErrEmptyContent):
		s.opts.Metrics.observeSkip("empty_content")
	case err != nil:
		s.log.Warn().Err(err).Msg("Autosave failed")
	}
}

// RequestManualSave persists the draft now, superseding a pending autosave.
// A blank title raises a warning and returns ErrEmptyTitle; blank content
// raises an info notification and returns ErrEmptyContent. Neither reaches
// the store.
func (s *Session) RequestManualSave(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.lastActive = time.Now()

	if isBlank(s.title) {
		s.notifier.Show(SeverityWarning, msgTitleRequired)
		s.mu.Unlock()
		s.opts.Metrics.observeSkip("empty_title")
		return ErrEmptyTitle
	}
	if isBlank(s.content) {
		s.notifier.Show(SeverityInfo, msgNothingToSave)
		s.mu.Unlock()
		s.opts.Metrics.observeSkip("empty_content")
		return ErrEmptyContent
	}

	s.debouncer.Cancel()
	s.mu.Unlock()

	if err := s.save(ctx, TriggerManual); err != nil {
		if errors.Is(err, ErrEmptyContent) {
			s.mu.Lock()
			if !s.closed {
				s.notifier.Show(SeverityInfo, msgNothingToSave)
			}
			s.mu.Unlock()
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.notifier.Show(SeveritySuccess, msgSaved)
	}
	return nil
}

// save runs the persist path, joining an in-flight persist when there is one.
// If the joined persist started before the caller's latest edit, one more
// persist runs afterwards so the caller's revision reaches the store.
func (s *Session) save(ctx context.Context, trigger Trigger) error {
	s.mu.Lock()
	target := s.revision
	s.mu.Unlock()

	for {
		v, err, shared := s.flight.Do(persistKey, func() (interface{}, error) {
			return s.persistOnce(ctx, trigger)
		})
		if err != nil {
			return err
		}

		stored := v.(uint64)
		if stored >= target {
			return nil
		}

		s.log.Debug().Bool("shared", shared).Uint64("stored", stored).Uint64("target", target).Msg("Joined an older save, saving again")
	}
}

// persistOnce makes one store call with the current draft and returns the
// revision it stored. Content cleared since the caller validated it is
// ErrEmptyContent. The error notification for a failed store call is raised
// here so joined callers never duplicate it.
func (s *Session) persistOnce(ctx context.Context, trigger Trigger) (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}

	revision := s.revision
	draft := s.draftLocked()
	if isBlank(draft.Content) {
		s.mu.Unlock()
		return revision, ErrEmptyContent
	}

	s.status = StatusSaving
	s.pending = false
	s.emitStatusLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	start := time.Now()
	err := s.store.Persist(ctx, draft)
	cancel()
	s.opts.Metrics.observeSave(trigger, time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("trigger", string(trigger)).Msg("Failed to persist draft")
		s.status = StatusError
		s.emitStatusLocked()
		if !s.closed {
			s.notifier.Show(SeverityError, msgSaveFailed)
		}
		return revision, &PersistError{Trigger: trigger, Err: err}
	}

	s.log.Debug().Str("trigger", string(trigger)).Uint64("revision", revision).Msg("Draft persisted")
	s.status = StatusSaved
	s.emitStatusLocked()
	return revision, nil
}

// RequestShare asks the store for a share link. It needs a title and
// content and never changes the save status.
func (s *Session) RequestShare(ctx context.Context) (model.ShareLink, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.ShareLink{}, ErrSessionClosed
	}
	s.lastActive = time.Now()

	var invalid error
	switch {
	case isBlank(s.title):
		invalid = ErrEmptyTitle
	case isBlank(s.content):
		invalid = ErrEmptyContent
	}
	if invalid != nil {
		s.notifier.Show(SeverityWarning, msgShareRequired)
		s.mu.Unlock()
		return model.ShareLink{}, invalid
	}

	draft := s.draftLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancel()

	link, err := s.store.Share(ctx, draft)
	s.opts.Metrics.observeShare(err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("Failed to share draft")
		if !s.closed {
			s.notifier.Show(SeverityError, msgShareFailed)
		}
		return model.ShareLink{}, &ShareError{Err: err}
	}

	if !s.closed {
		s.notifier.Show(SeveritySuccess, msgShared+link.URL)
	}
	return link, nil
}

func (s *Session) ToggleViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = s.mode.Toggle()
	s.lastActive = time.Now()
	return s.mode
}

func (s *Session) SetViewMode(mode ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	s.lastActive = time.Now()
}

func (s *Session) ViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) DismissNotification() {
	s.notifier.Dismiss()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Draft:        s.draftLocked(),
		Status:       s.status,
		Pending:      s.pending,
		Mode:         s.mode,
		Notification: s.notifier.Current(),
		Seq:          max(s.contentSeq, s.titleSeq),
	}
}

// Close cancels the autosave and notification timers. A persist already in
// flight completes but emits nothing.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.debouncer.Cancel()
	s.notifier.Close()
	s.mu.Unlock()

	s.opts.Metrics.sessionClosed()
	s.log.Debug().Msg("Session closed")
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
