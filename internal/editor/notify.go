package editor

import (
	"sync"
	"time"
)

// Notifier holds at most one notification. Showing a new one replaces the
// current one and restarts the expiry timer. Expiry of a replaced
// notification is ignored.
//
// onChange runs with the notifier lock held so listeners observe changes in
// order; it must not block or call back into the Notifier.
type Notifier struct {
	mu       sync.Mutex
	duration time.Duration
	current  Notification
	lastID   uint64
	timer    *time.Timer
	closed   bool
	onChange func(Notification)
}

func NewNotifier(duration time.Duration, onChange func(Notification)) *Notifier {
	if onChange == nil {
		onChange = func(Notification) {}
	}
	return &Notifier{
		duration: duration,
		onChange: onChange,
	}
}

func (n *Notifier) Show(severity Severity, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return Notification{}
	}

	if n.timer != nil {
		n.timer.Stop()
	}

	n.lastID++
	n.current = Notification{
		ID:       n.lastID,
		Message:  message,
		Severity: severity,
		Visible:  true,
	}

	id := n.current.ID
	n.timer = time.AfterFunc(n.duration, func() {
		n.hide(id)
	})

	n.onChange(n.current)
	return n.current
}

// Dismiss hides the current notification before it expires.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	id := n.current.ID
	n.mu.Unlock()

	n.hide(id)
}

func (n *Notifier) hide(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.current.ID != id || !n.current.Visible {
		return
	}

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}

	n.current.Visible = false
	n.onChange(n.current)
}

func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Close stops the expiry timer. No further changes are reported.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
