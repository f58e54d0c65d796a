// Package model defines core data structures shared by the store, editor and pages.
package model

import (
	"html/template"
	"strings"
	"time"
)

type UserID string

type ResumeID string

// Draft is the editable part of a resume as held by an editor session. Its ID
// becomes the resume ID on the first successful persist.
type Draft struct {
	ID      ResumeID
	Title   string
	Content string
	Owner   UserID
}

type Resume struct {
	ID       ResumeID
	Title    string
	Markdown []byte

	// Rendered HTML, filled by handlers right before templating.
	Content template.HTML

	// Used for cache busting of the rendered preview.
	MDContentHash string

	Owner  UserID
	Author string
	Tags   []string

	CreatedDate  time.Time
	ModifiedDate time.Time

	// Zero until the resume is shared for the first time.
	SharedDate time.Time
}

const UntitledResume = "Untitled resume"

func (r *Resume) GetTitle() string {
	if strings.TrimSpace(r.Title) == "" {
		return UntitledResume
	}
	return r.Title
}

func (r *Resume) IsShared() bool {
	return !r.SharedDate.IsZero()
}

// EditableBy reports whether user may reopen r in the editor. An ownerless
// resume is open to whoever holds its id until it is shared, and read-only
// from then on.
func (r *Resume) EditableBy(user UserID) bool {
	if r.Owner != "" {
		return r.Owner == user
	}
	return !r.IsShared()
}

type ShareLink struct {
	Token    string
	ResumeID ResumeID
	URL      string
	Created  time.Time
}

type Comment struct {
	ID       string
	ResumeID ResumeID
	Author   string
	Content  string
	Created  time.Time
}
