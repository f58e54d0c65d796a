// Package comment holds viewer comment threads in process memory.
package comment

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/debemdeboas/resumark/internal/cache"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/google/uuid"
)

const (
	AnonymousAuthor  = "Anonymous"
	MaxContentLength = 2000
)

var (
	ErrEmpty   = errors.New("comment is empty")
	ErrTooLong = errors.New("comment is too long")
)

// Board keeps the most recent comments of each resume, oldest first.
type Board struct {
	threads *cache.Cache[model.ResumeID, []model.Comment]
	limit   int

	now func() time.Time
}

// NewBoard returns a board keeping at most limit comments per resume. A
// limit of zero or less keeps every comment.
func NewBoard(limit int) *Board {
	return &Board{
		threads: cache.NewCache[model.ResumeID, []model.Comment](),
		limit:   limit,
		now:     time.Now,
	}
}

func (b *Board) Add(resumeID model.ResumeID, author, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, ErrEmpty
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return model.Comment{}, ErrTooLong
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = AnonymousAuthor
	}

	c := model.Comment{
		ID:       uuid.New().String(),
		ResumeID: resumeID,
		Author:   author,
		Content:  content,
		Created:  b.now(),
	}

	b.threads.Update(resumeID, func(thread []model.Comment, _ bool) []model.Comment {
		if b.limit > 0 && len(thread) >= b.limit {
			thread = thread[len(thread)-b.limit+1:]
		}
		// Published threads are never written to, so readers can copy
		// them outside the lock.
		next := make([]model.Comment, 0, len(thread)+1)
		return append(append(next, thread...), c)
	})

	return c, nil
}

// List returns a copy of the thread of a resume.
func (b *Board) List(resumeID model.ResumeID) []model.Comment {
	thread, _ := b.threads.Get(resumeID)
	return append([]model.Comment(nil), thread...)
}

func (b *Board) Count(resumeID model.ResumeID) int {
	thread, _ := b.threads.Get(resumeID)
	return len(thread)
}
