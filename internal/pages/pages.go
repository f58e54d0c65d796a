// Package pages serves the read side of the site: home, shared list, resume
// viewer with comments, share links and theme switches.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/debemdeboas/resumark/internal/comment"
	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/render"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/debemdeboas/resumark/internal/store"
	"github.com/debemdeboas/resumark/internal/theme"
	"github.com/debemdeboas/resumark/internal/util"
	"github.com/rs/zerolog"
)

const homeRecentLimit = 3

const (
	FlashReviewRequested = "review-requested"
	FlashCommentEmpty    = "comment-empty"
	FlashCommentTooLong  = "comment-too-long"
)

var flashMessages = map[string]string{
	FlashReviewRequested: "Review requested. The author will be notified.",
	FlashCommentEmpty:    config.ErrCommentEmpty,
	FlashCommentTooLong:  "Comment is too long.",
}

// ResumeSource is the part of the resume store the pages read from.
type ResumeSource interface {
	Share(ctx context.Context, draft model.Draft) (model.ShareLink, error)
	FetchByID(ctx context.Context, id model.ResumeID) (*model.Resume, error)
	ListShared(ctx context.Context) ([]model.Resume, error)
	ResolveShare(ctx context.Context, token string) (model.ResumeID, error)
}

type UserResolver interface {
	GetUserIDFromSession(r *http.Request) (model.UserID, error)
}

// NameResolver turns a user id into a display name.
type NameResolver interface {
	DisplayName(ctx context.Context, id model.UserID) (string, error)
}

type Handler struct {
	resumes  ResumeSource
	comments *comment.Board
	renderer *render.Renderer
	users    UserResolver
	names    NameResolver

	fs fs.FS
}

// NewHandler returns the page handler. A nil comment board disables
// comments; a nil user resolver treats every visitor as a guest.
func NewHandler(resumes ResumeSource, comments *comment.Board, renderer *render.Renderer, users UserResolver, fs fs.FS) *Handler {
	return &Handler{
		resumes:  resumes,
		comments: comments,
		renderer: renderer,
		users:    users,
		fs:       fs,
	}
}

// WithNames sets the resolver used to greet signed in users.
func (h *Handler) WithNames(names NameResolver) *Handler {
	h.names = names
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(routes.RobotsPath, serveRobots)
	mux.HandleFunc(routes.ThemeToggle, serveThemeToggle)
	mux.HandleFunc(routes.SyntaxThemeSet, serveSyntaxThemeSet)
	mux.HandleFunc(routes.SyntaxThemeGet, serveSyntaxThemeGet)

	mux.HandleFunc("GET "+routes.RootPath+"{$}", h.serveHome)
	mux.HandleFunc("GET "+routes.SharedList, h.serveShared)
	mux.HandleFunc("GET "+routes.Resume, h.serveViewer)
	mux.HandleFunc("POST "+routes.ResumeComments, h.serveAddComment)
	mux.HandleFunc("POST "+routes.ResumeShare, h.serveShare)
	mux.HandleFunc("POST "+routes.ResumeReview, h.serveReview)
	mux.HandleFunc("GET "+routes.ResumeDownload, h.serveDownload)
	mux.HandleFunc("GET "+routes.ShareLink, h.serveShareLink)
}

func (h *Handler) currentUser(r *http.Request) model.UserID {
	if h.users == nil {
		return ""
	}
	id, err := h.users.GetUserIDFromSession(r)
	if err != nil {
		return ""
	}
	return id
}

func (h *Handler) pageData(r *http.Request) *model.PageData {
	pd := model.NewPageData(r)

	user := h.currentUser(r)
	if user == "" {
		return pd
	}

	pd.UserName = string(user)
	if h.names != nil {
		if name, err := h.names.DisplayName(r.Context(), user); err == nil {
			pd.UserName = name
		}
	}
	return pd
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	log := zerolog.Ctx(r.Context())

	tmpl, err := template.ParseFS(h.fs, config.TemplatesLocalDir+"/"+config.TemplateLayout, config.TemplatesLocalDir+"/"+page)
	if err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to parse template")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) serveHome(w http.ResponseWriter, r *http.Request) {
	shared, err := h.resumes.ListShared(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to list shared resumes for the home page")
	}
	if len(shared) > homeRecentLimit {
		shared = shared[:homeRecentLimit]
	}

	data := struct {
		*model.PageData
		Description string
		EditorPath  string
		SharedPath  string
		Recent      []model.Resume
	}{
		PageData:    h.pageData(r),
		Description: config.AppConfig.Site.Description,
		EditorPath:  routes.Editor,
		SharedPath:  routes.SharedList,
		Recent:      shared,
	}

	h.render(w, r, config.TemplateHome, data)
}

func (h *Handler) serveShared(w http.ResponseWriter, r *http.Request) {
	shared, err := h.resumes.ListShared(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list shared resumes")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	data := struct {
		*model.PageData
		Resumes []model.Resume
	}{
		PageData: h.pageData(r),
		Resumes:  shared,
	}

	h.render(w, r, config.TemplateShared, data)
}

// loadResume fetches the resume named in the path. Private resumes with an
// owner are only visible to that owner; everyone else gets a 404.
func (h *Handler) loadResume(w http.ResponseWriter, r *http.Request) (*model.Resume, bool) {
	id := model.ResumeID(r.PathValue("id"))

	resume, err := h.resumes.FetchByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, config.ErrResumeNotFound, http.StatusNotFound)
		return nil, false
	} else if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("resume_id", string(id)).Msg("Failed to fetch resume")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return nil, false
	}

	if !resume.IsShared() && resume.Owner != "" && resume.Owner != h.currentUser(r) {
		http.Error(w, config.ErrResumeNotFound, http.StatusNotFound)
		return nil, false
	}

	return resume, true
}

func (h *Handler) serveViewer(w http.ResponseWriter, r *http.Request) {
	resume, ok := h.loadResume(w, r)
	if !ok {
		return
	}

	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	resume.Content = template.HTML(h.renderer.RenderCached(resume.Markdown, resume.MDContentHash, syntaxTheme))

	var comments []model.Comment
	if h.comments != nil {
		comments = h.comments.List(resume.ID)
	}

	user := h.currentUser(r)
	data := struct {
		*model.PageData
		Resume          *model.Resume
		Comments        []model.Comment
		CommentsEnabled bool
		CanEdit         bool
		EditPath        string
		Flash           string
	}{
		PageData:        h.pageData(r),
		Resume:          resume,
		Comments:        comments,
		CommentsEnabled: h.comments != nil,
		CanEdit:         resume.EditableBy(user),
		EditPath:        routes.Editor + "?resume=" + string(resume.ID),
		Flash:           flashMessages[r.URL.Query().Get("flash")],
	}

	w.Header().Set(config.HETag, util.ContentHash([]byte(resume.MDContentHash+data.Theme+syntaxTheme+string(user))))
	h.render(w, r, config.TemplateViewer, data)
}

func (h *Handler) serveAddComment(w http.ResponseWriter, r *http.Request) {
	if h.comments == nil {
		http.Error(w, config.ErrCommentsOff, http.StatusNotFound)
		return
	}

	resume, ok := h.loadResume(w, r)
	if !ok {
		return
	}

	author := r.FormValue("author")
	if author == "" {
		author = h.pageData(r).UserName
	}

	back := routes.ResumePath(string(resume.ID))
	c, err := h.comments.Add(resume.ID, author, r.FormValue("content"))
	switch {
	case errors.Is(err, comment.ErrEmpty):
		http.Redirect(w, r, back+"?flash="+FlashCommentEmpty, http.StatusSeeOther)
		return
	case errors.Is(err, comment.ErrTooLong):
		http.Redirect(w, r, back+"?flash="+FlashCommentTooLong, http.StatusSeeOther)
		return
	}

	zerolog.Ctx(r.Context()).Debug().Str("resume_id", string(resume.ID)).Str("comment_id", c.ID).Msg("Comment added")
	http.Redirect(w, r, back+"#comment-"+c.ID, http.StatusSeeOther)
}

func (h *Handler) serveShare(w http.ResponseWriter, r *http.Request) {
	resume, ok := h.loadResume(w, r)
	if !ok {
		return
	}

	if resume.Owner != "" && resume.Owner != h.currentUser(r) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	link, err := h.resumes.Share(r.Context(), model.Draft{
		ID:      resume.ID,
		Title:   resume.Title,
		Content: string(resume.Markdown),
		Owner:   resume.Owner,
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("resume_id", string(resume.ID)).Msg("Failed to share resume")
		http.Error(w, "Failed to share resume", http.StatusBadGateway)
		return
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	if err := json.NewEncoder(w).Encode(map[string]string{"share_url": link.URL}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write share link")
	}
}

// serveReview records a review request. Delivery to a reviewer is not
// implemented; the request is only logged.
func (h *Handler) serveReview(w http.ResponseWriter, r *http.Request) {
	resume, ok := h.loadResume(w, r)
	if !ok {
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("resume_id", string(resume.ID)).
		Str("requested_by", string(h.currentUser(r))).
		Str("note", r.FormValue("note")).
		Msg("Review requested")

	http.Redirect(w, r, routes.ResumePath(string(resume.ID))+"?flash="+FlashReviewRequested, http.StatusSeeOther)
}

func (h *Handler) serveDownload(w http.ResponseWriter, r *http.Request) {
	resume, ok := h.loadResume(w, r)
	if !ok {
		return
	}

	w.Header().Set(config.HCType, config.CTypeMarkdown)
	w.Header().Set(config.HContentDisp, `attachment; filename="`+fileName(resume.GetTitle())+`.md"`)
	w.Header().Set(config.HETag, resume.MDContentHash)
	w.Write(resume.Markdown)
}

func (h *Handler) serveShareLink(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	id, err := h.resumes.ResolveShare(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, config.ErrResumeNotFound, http.StatusNotFound)
		return
	} else if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to resolve share link")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, routes.ResumePath(string(id)), http.StatusFound)
}

// fileName turns a title into a lowercase ASCII, dash separated file name.
func fileName(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		return "resume"
	}
	return name
}
