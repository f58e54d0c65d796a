// Package store persists resumes written in the editor and resolves shared
// resume links.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/util"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("resume not found")

var storeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}

// ResumeStore is the collaborator the editor sessions persist drafts to.
// Implementations must be safe for concurrent use.
type ResumeStore interface {
	// Persist creates or updates the resume identified by draft.ID.
	Persist(ctx context.Context, draft model.Draft) error

	// Share persists the draft, marks the resume as shared and returns its
	// share link. Sharing an already shared resume returns the same token.
	Share(ctx context.Context, draft model.Draft) (model.ShareLink, error)

	FetchByID(ctx context.Context, id model.ResumeID) (*model.Resume, error)

	// ListShared returns every shared resume, most recently shared first.
	ListShared(ctx context.Context) ([]model.Resume, error)

	ResolveShare(ctx context.Context, token string) (model.ResumeID, error)
}

const SharePath = "/s/"

func shareURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + SharePath + token
}

// resumeFromDraft builds the stored form of a draft. Author and tags come
// from the front matter block when the content carries one.
func resumeFromDraft(draft model.Draft) model.Resume {
	resume := model.Resume{
		ID:            draft.ID,
		Title:         draft.Title,
		Markdown:      []byte(draft.Content),
		MDContentHash: util.ContentHashString(draft.Content),
		Owner:         draft.Owner,
		Author:        string(draft.Owner),
	}

	if fm, err := util.GetFrontMatter(resume.Markdown); err == nil {
		if fm.Author != "" {
			resume.Author = fm.Author
		}
		resume.Tags = fm.Tags
	} else if !errors.Is(err, util.ErrNoFrontMatter) {
		storeLogger.Debug().Err(err).Str("resume_id", string(draft.ID)).Msg("Ignoring malformed front matter")
	}

	return resume
}

func sortBySharedDate(resumes []model.Resume) {
	slices.SortStableFunc(resumes, func(a, b model.Resume) int {
		return -a.SharedDate.Compare(b.SharedDate)
	})
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	return strings.Split(tags, ",")
}
