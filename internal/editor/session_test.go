package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/resumark/internal/model"
	"go.uber.org/goleak"
)

func TestSession_AutosaveDebounce(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	s.UpdateTitle("Resume")
	for _, text := range []string{"#", "# H", "# Hi"} {
		if err := s.UpdateContent(text); err != nil {
			t.Fatalf("UpdateContent failed: %v", err)
		}
		time.Sleep(testAutosaveDelay / 3)
	}

	if !s.State().Pending {
		t.Error("Expected pending changes before the window elapses")
	}

	eventually(t, time.Second, func() bool { return len(store.persistCalls()) == 1 }, "Expected one autosave")
	time.Sleep(3 * testAutosaveDelay)

	calls := store.persistCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected exactly one persist call, got %d", len(calls))
	}
	if calls[0].Content != "# Hi" || calls[0].Title != "Resume" {
		t.Errorf("Expected last edit to be saved, got %+v", calls[0])
	}

	state := s.State()
	if state.Status != StatusSaved || state.Pending {
		t.Errorf("Expected saved without pending changes, got %v pending=%v", state.Status, state.Pending)
	}
	if rec.total(EventNotification) != 0 {
		t.Errorf("Expected silent autosave, got %d notifications", rec.total(EventNotification))
	}
}

func TestSession_AutosaveSkipsEmptyContent(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &recorder{})

	s.UpdateTitle("Resume")
	s.UpdateContent("  \n")

	time.Sleep(3 * testAutosaveDelay)

	if n := len(store.persistCalls()); n != 0 {
		t.Errorf("Expected no persist for empty content, got %d", n)
	}
	if s.State().Status != StatusSaved {
		t.Errorf("Expected status unchanged, got %v", s.State().Status)
	}
}

func TestSession_AutosaveIgnoresTitle(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &recorder{})

	s.UpdateContent("# Untitled draft")

	eventually(t, time.Second, func() bool { return len(store.persistCalls()) == 1 }, "Expected autosave without a title")
}

func TestSession_ManualSaveValidation(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		content  string
		wantErr  error
		severity Severity
	}{
		{"empty title", "", "# Hi", ErrEmptyTitle, SeverityWarning},
		{"whitespace title", " \t ", "# Hi", ErrEmptyTitle, SeverityWarning},
		{"empty content", "X", "", ErrEmptyContent, SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			rec := &recorder{}
			s := newTestSession(t, store, rec)

			s.UpdateTitle(tt.title)
			s.UpdateContent(tt.content)
			before := s.State().Status

			err := s.RequestManualSave(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			if rec.notifications(tt.severity) != 1 {
				t.Errorf("Expected one %s notification, got %d", tt.severity, rec.notifications(tt.severity))
			}
			if s.State().Status != before {
				t.Errorf("Expected status %v unchanged, got %v", before, s.State().Status)
			}

			// The pending autosave was not canceled by the rejected save
			time.Sleep(3 * testAutosaveDelay)
			for _, call := range store.persistCalls() {
				if tt.content == "" || call.Content != tt.content {
					t.Errorf("Unexpected persist call %+v", call)
				}
			}
			if tt.content == "" && len(store.persistCalls()) != 0 {
				t.Error("Expected no store call for empty content")
			}
		})
	}
}

func TestSession_ManualSaveSuccess(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")

	if err := s.RequestManualSave(context.Background()); err != nil {
		t.Fatalf("RequestManualSave failed: %v", err)
	}

	state := s.State()
	if state.Status != StatusSaved {
		t.Errorf("Expected status saved, got %v", state.Status)
	}
	if state.Notification.Severity != SeveritySuccess || !state.Notification.Visible {
		t.Errorf("Expected visible success notification, got %+v", state.Notification)
	}
	if rec.notifications(SeveritySuccess) != 1 {
		t.Errorf("Expected exactly one success notification, got %d", rec.notifications(SeveritySuccess))
	}

	// Manual save supersedes the pending autosave
	time.Sleep(3 * testAutosaveDelay)
	if n := len(store.persistCalls()); n != 1 {
		t.Errorf("Expected exactly one persist call, got %d", n)
	}
}

func TestSession_PersistFailure(t *testing.T) {
	for _, trigger := range []Trigger{TriggerManual, TriggerAutosave} {
		t.Run(string(trigger), func(t *testing.T) {
			store := newFakeStore()
			store.setPersistErr(errStoreDown)
			rec := &recorder{}
			s := newTestSession(t, store, rec)

			s.UpdateTitle("Resume")
			s.UpdateContent("# Hi")

			if trigger == TriggerManual {
				err := s.RequestManualSave(context.Background())

				var persistErr *PersistError
				if !errors.As(err, &persistErr) {
					t.Fatalf("Expected *PersistError, got %v", err)
				}
				if persistErr.Trigger != TriggerManual || !errors.Is(err, errStoreDown) {
					t.Errorf("Expected wrapped store error, got %v", err)
				}
			} else {
				eventually(t, time.Second, func() bool { return s.State().Status == StatusError }, "Expected autosave to fail")
			}

			time.Sleep(2 * testAutosaveDelay)

			if s.State().Status != StatusError {
				t.Errorf("Expected status error, got %v", s.State().Status)
			}
			if rec.notifications(SeverityError) != 1 {
				t.Errorf("Expected exactly one error notification, got %d", rec.notifications(SeverityError))
			}
			if rec.notifications(SeveritySuccess) != 0 {
				t.Error("Expected no success notification")
			}
		})
	}
}

func TestSession_RecoversAfterFailure(t *testing.T) {
	store := newFakeStore()
	store.setPersistErr(errStoreDown)
	s := newTestSession(t, store, &recorder{})

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")
	if err := s.RequestManualSave(context.Background()); err == nil {
		t.Fatal("Expected first save to fail")
	}

	store.setPersistErr(nil)
	s.UpdateContent("# Hi again")

	eventually(t, time.Second, func() bool { return s.State().Status == StatusSaved }, "Expected next autosave to succeed")
	if calls := store.persistCalls(); len(calls) != 1 || calls[0].Content != "# Hi again" {
		t.Errorf("Expected the retry edit to be stored, got %+v", calls)
	}
}

func TestSession_Share(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		cases := []struct {
			title, content string
			wantErr        error
		}{
			{"", "# Hi", ErrEmptyTitle},
			{"Resume", "", ErrEmptyContent},
			{"  ", "  ", ErrEmptyTitle},
		}

		for _, c := range cases {
			store := newFakeStore()
			rec := &recorder{}
			s := newTestSession(t, store, rec)
			s.UpdateTitle(c.title)
			s.UpdateContent(c.content)

			_, err := s.RequestShare(context.Background())
			if !errors.Is(err, c.wantErr) {
				t.Errorf("title %q content %q: expected %v, got %v", c.title, c.content, c.wantErr, err)
			}
			if store.shareCalls() != 0 {
				t.Errorf("Expected no share call, got %d", store.shareCalls())
			}
			if rec.notifications(SeverityWarning) != 1 {
				t.Errorf("Expected one warning, got %d", rec.notifications(SeverityWarning))
			}
		}
	})

	t.Run("Success", func(t *testing.T) {
		store := newFakeStore()
		rec := &recorder{}
		s := newTestSession(t, store, rec)
		s.UpdateTitle("Resume")
		s.UpdateContent("# Hi")

		link, err := s.RequestShare(context.Background())
		if err != nil {
			t.Fatalf("RequestShare failed: %v", err)
		}
		if link.URL == "" {
			t.Error("Expected a share URL")
		}

		n := s.State().Notification
		if n.Severity != SeveritySuccess || !strings.Contains(n.Message, link.URL) {
			t.Errorf("Expected success notification with the link, got %+v", n)
		}
		if s.State().Status != StatusSaved {
			t.Errorf("Expected share to leave status alone, got %v", s.State().Status)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		store := newFakeStore()
		store.shareErr = errStoreDown
		rec := &recorder{}
		s := newTestSession(t, store, rec)
		s.UpdateTitle("Resume")
		s.UpdateContent("# Hi")
		before := s.State().Status

		_, err := s.RequestShare(context.Background())

		var shareErr *ShareError
		if !errors.As(err, &shareErr) || !errors.Is(err, errStoreDown) {
			t.Fatalf("Expected *ShareError wrapping the store error, got %v", err)
		}
		if rec.notifications(SeverityError) != 1 {
			t.Errorf("Expected one error notification, got %d", rec.notifications(SeverityError))
		}
		if s.State().Status != before {
			t.Errorf("Expected status unchanged, got %v", s.State().Status)
		}
	})
}

func TestSession_ToggleViewMode(t *testing.T) {
	store := newFakeStore()
	store.setPersistErr(errStoreDown)
	s := newTestSession(t, store, &recorder{})

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")
	s.RequestManualSave(context.Background())
	before := s.State()

	if s.ViewMode() != ModeEdit {
		t.Fatalf("Expected edit mode initially, got %v", s.ViewMode())
	}
	if got := s.ToggleViewMode(); got != ModePreview {
		t.Errorf("Expected preview after toggle, got %v", got)
	}
	if got := s.ToggleViewMode(); got != ModeEdit {
		t.Errorf("Expected edit after second toggle, got %v", got)
	}
	s.SetViewMode(ModePreview)

	after := s.State()
	if after.Draft != before.Draft || after.Status != before.Status || after.Pending != before.Pending {
		t.Errorf("Expected toggling to leave draft and status alone, before %+v after %+v", before, after)
	}
	if after.Mode != ModePreview {
		t.Errorf("Expected preview mode, got %v", after.Mode)
	}
}

func TestSession_SingleFlight(t *testing.T) {
	store := newFakeStore()
	store.blockPersists()
	s := newTestSession(t, store, &recorder{})

	s.UpdateTitle("Resume")
	s.UpdateContent("# v1")

	// Autosave starts and blocks in the store
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("Autosave never reached the store")
	}

	// An edit during the flight, then a manual save that joins it
	s.UpdateContent("# v2")
	done := make(chan error, 1)
	go func() { done <- s.RequestManualSave(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	store.release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RequestManualSave failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Manual save never returned")
	}

	calls := store.persistCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected the joined save plus one follow-up, got %d calls", len(calls))
	}
	if calls[0].Content != "# v1" || calls[1].Content != "# v2" {
		t.Errorf("Expected v1 then v2, got %q then %q", calls[0].Content, calls[1].Content)
	}
	if store.maxInFlight != 1 {
		t.Errorf("Expected at most one persist in flight, got %d", store.maxInFlight)
	}
	if s.State().Status != StatusSaved {
		t.Errorf("Expected saved, got %v", s.State().Status)
	}
}

func TestSession_OutOfOrderUpdates(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &recorder{})

	// The later keystrokes arrive first
	if applied, err := s.UpdateTitleAt(4, "Resume v2"); err != nil || !applied {
		t.Fatalf("Expected title 4 to apply, got %v (%v)", applied, err)
	}
	if applied, err := s.UpdateContentAt(3, "abc"); err != nil || !applied {
		t.Fatalf("Expected content 3 to apply, got %v (%v)", applied, err)
	}
	if applied, _ := s.UpdateContentAt(2, "ab"); applied {
		t.Error("Expected older content to be dropped")
	}
	if applied, _ := s.UpdateContentAt(3, "abc?"); applied {
		t.Error("Expected a repeated sequence number to be dropped")
	}
	if applied, _ := s.UpdateTitleAt(1, "Resume"); applied {
		t.Error("Expected older title to be dropped")
	}
	if got := s.State().Seq; got != 4 {
		t.Errorf("Expected the highest applied sequence 4, got %d", got)
	}

	eventually(t, time.Second, func() bool { return len(store.persistCalls()) == 1 }, "Expected one autosave")

	calls := store.persistCalls()
	if calls[0].Content != "abc" || calls[0].Title != "Resume v2" {
		t.Errorf("Expected the newest edits to be saved, got %+v", calls[0])
	}
}

func TestSession_ManualSaveOfClearedContent(t *testing.T) {
	store := newFakeStore()
	store.blockPersists()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	s.UpdateTitle("Resume")
	s.UpdateContent("# v1")
	<-store.started

	s.UpdateContent("# v2")
	done := make(chan error, 1)
	go func() { done <- s.RequestManualSave(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	s.UpdateContent("  ")
	store.release()

	select {
	case err := <-done:
		if !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("Expected ErrEmptyContent, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Manual save never returned")
	}

	if calls := store.persistCalls(); len(calls) != 1 || calls[0].Content != "# v1" {
		t.Errorf("Expected only the first autosave to reach the store, got %+v", calls)
	}
	if rec.notifications(SeverityInfo) != 1 {
		t.Errorf("Expected one info notification, got %d", rec.notifications(SeverityInfo))
	}
	if rec.notifications(SeveritySuccess) != 0 {
		t.Error("Expected no success notification")
	}
}

func TestSession_ConcurrentManualSaves(t *testing.T) {
	store := newFakeStore()
	store.blockPersists()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")

	const callers = 5
	done := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() { done <- s.RequestManualSave(context.Background()) }()
	}

	<-store.started
	time.Sleep(20 * time.Millisecond)
	store.release()

	for i := 0; i < callers; i++ {
		if err := <-done; err != nil {
			t.Errorf("Save %d failed: %v", i, err)
		}
	}

	if n := len(store.persistCalls()); n != 1 {
		t.Errorf("Expected one store call for concurrent saves of one revision, got %d", n)
	}
	if store.maxInFlight != 1 {
		t.Errorf("Expected at most one persist in flight, got %d", store.maxInFlight)
	}
}

func TestSession_PendingFlag(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	if s.State().Pending {
		t.Error("Expected a fresh session to have no pending changes")
	}

	s.UpdateContent("# a")
	s.UpdateContent("# ab")

	statusEvents := rec.total(EventStatus)
	if statusEvents != 1 {
		t.Errorf("Expected one status event for becoming pending, got %d", statusEvents)
	}

	eventually(t, time.Second, func() bool { return !s.State().Pending && len(store.persistCalls()) == 1 }, "Expected autosave to clear pending")
}

func TestSession_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newFakeStore()
	rec := &recorder{}
	s := NewSession(model.Draft{ID: "d"}, store, Options{
		AutosaveDelay:        testAutosaveDelay,
		NotificationDuration: testNotifyDelay,
		Listener:             rec.listen,
	})

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")
	s.RequestShare(context.Background())
	before := len(rec.all())

	s.Close()
	s.Close()

	time.Sleep(2 * testNotifyDelay)

	if n := len(store.persistCalls()); n != 0 {
		t.Errorf("Expected pending autosave to be canceled, got %d calls", n)
	}
	if len(rec.all()) != before {
		t.Errorf("Expected no events after close, got %d new", len(rec.all())-before)
	}

	if err := s.UpdateContent("x"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if err := s.RequestManualSave(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.RequestShare(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_CloseDuringPersist(t *testing.T) {
	store := newFakeStore()
	store.blockPersists()
	rec := &recorder{}
	s := newTestSession(t, store, rec)

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")
	<-store.started

	s.Close()
	before := len(rec.all())
	store.release()

	eventually(t, time.Second, func() bool { return len(store.persistCalls()) == 1 }, "Expected in-flight persist to complete")
	time.Sleep(10 * time.Millisecond)

	if len(rec.all()) != before {
		t.Errorf("Expected in-flight completion to emit nothing, got %d new events", len(rec.all())-before)
	}
}

func TestSession_DismissNotification(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, newFakeStore(), rec)

	s.RequestManualSave(context.Background())
	if !s.State().Notification.Visible {
		t.Fatal("Expected a warning notification")
	}

	s.DismissNotification()

	if s.State().Notification.Visible {
		t.Error("Expected notification to be hidden")
	}
	if rec.total(EventDismiss) != 1 {
		t.Errorf("Expected one dismiss event, got %d", rec.total(EventDismiss))
	}
}

func TestSession_NotificationExpires(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, newFakeStore(), rec)

	s.RequestManualSave(context.Background())
	eventually(t, time.Second, func() bool { return !s.State().Notification.Visible }, "Expected notification to expire")

	if rec.total(EventDismiss) != 1 {
		t.Errorf("Expected one dismiss event on expiry, got %d", rec.total(EventDismiss))
	}
}

func TestSession_NewNotificationReplacesOld(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &recorder{})

	s.RequestManualSave(context.Background())
	first := s.State().Notification

	s.UpdateTitle("Resume")
	s.UpdateContent("# Hi")
	s.RequestManualSave(context.Background())
	second := s.State().Notification

	if second.ID == first.ID || second.Severity != SeveritySuccess {
		t.Errorf("Expected the success notification to replace the warning, got %+v", second)
	}
}
