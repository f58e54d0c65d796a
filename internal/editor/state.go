// Package editor holds the server side state of every open resume editor:
// the draft text, its save status, debounced autosave and the transient
// notification shown to the user.
package editor

import "github.com/debemdeboas/resumark/internal/model"

type SaveStatus int

const (
	StatusSaved SaveStatus = iota
	StatusSaving
	StatusError
)

func (s SaveStatus) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusError:
		return "error"
	default:
		return "saved"
	}
}

type ViewMode int

const (
	ModeEdit ViewMode = iota
	ModePreview
)

func (m ViewMode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "edit"
}

func (m ViewMode) Toggle() ViewMode {
	if m == ModePreview {
		return ModeEdit
	}
	return ModePreview
}

func ParseViewMode(s string) (ViewMode, bool) {
	switch s {
	case "edit":
		return ModeEdit, true
	case "preview":
		return ModePreview, true
	}
	return ModeEdit, false
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	ID       uint64   `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Visible  bool     `json:"visible"`
}

// Trigger names what started a persist attempt.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerAutosave Trigger = "autosave"
)

// State is a point in time copy of a session, used for rendering.
type State struct {
	Draft        model.Draft
	Status       SaveStatus
	Pending      bool
	Mode         ViewMode
	Notification Notification

	// Highest edit sequence number applied so far. A reloaded editor page
	// continues numbering from here.
	Seq uint64
}

type EventKind string

const (
	EventStatus       EventKind = "status"
	EventNotification EventKind = "notification"
	EventDismiss      EventKind = "dismiss"
)

// Event is emitted to the session listener on every status or notification
// change.
type Event struct {
	Kind         EventKind      `json:"kind"`
	DraftID      model.ResumeID `json:"draft_id"`
	Status       string         `json:"status,omitempty"`
	Pending      bool           `json:"pending"`
	Notification *Notification  `json:"notification,omitempty"`
}
