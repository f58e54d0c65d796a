package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/debemdeboas/resumark/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore records calls and can fail, or block until released.
type fakeStore struct {
	mu          sync.Mutex
	persisted   []model.Draft
	shared      []model.Draft
	persistErr  error
	shareErr    error
	gate        chan struct{}
	started     chan struct{}
	inFlight    int
	maxInFlight int
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

// blockPersists makes every Persist wait until release is called. Each
// Persist signals on started once it is running.
func (f *fakeStore) blockPersists() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 10)
}

func (f *fakeStore) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeStore) setPersistErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistErr = err
}

func (f *fakeStore) Persist(ctx context.Context, draft model.Draft) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.persistErr != nil {
		return f.persistErr
	}
	f.persisted = append(f.persisted, draft)
	return nil
}

func (f *fakeStore) Share(_ context.Context, draft model.Draft) (model.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shared = append(f.shared, draft)
	if f.shareErr != nil {
		return model.ShareLink{}, f.shareErr
	}
	return model.ShareLink{Token: "tok", ResumeID: draft.ID, URL: "http://resumes.test/s/tok", Created: time.Now()}, nil
}

func (f *fakeStore) persistCalls() []model.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Draft(nil), f.persisted...)
}

func (f *fakeStore) shareCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shared)
}

// recorder collects session events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) notifications(severity Severity) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Kind == EventNotification && ev.Notification.Severity == severity {
			n++
		}
	}
	return n
}

func (r *recorder) total(kind EventKind) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

const (
	testAutosaveDelay = 30 * time.Millisecond
	testNotifyDelay   = 80 * time.Millisecond
)

func newTestSession(t *testing.T, store Store, rec *recorder) *Session {
	t.Helper()
	s := NewSession(model.Draft{ID: "draft-1"}, store, Options{
		AutosaveDelay:        testAutosaveDelay,
		NotificationDuration: testNotifyDelay,
		StoreTimeout:         time.Second,
		Listener:             rec.listen,
	})
	t.Cleanup(s.Close)
	return s
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
