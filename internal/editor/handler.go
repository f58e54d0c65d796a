package editor

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/render"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/debemdeboas/resumark/internal/sse"
	"github.com/debemdeboas/resumark/internal/store"
	"github.com/debemdeboas/resumark/internal/theme"
	"github.com/debemdeboas/resumark/internal/util"
	"github.com/rs/zerolog"
)

// UserResolver identifies the signed in user of a request.
type UserResolver interface {
	GetUserIDFromSession(r *http.Request) (model.UserID, error)
}

// ResumeFetcher loads stored resumes to reopen them in the editor.
type ResumeFetcher interface {
	FetchByID(ctx context.Context, id model.ResumeID) (*model.Resume, error)
}

type Handler struct {
	manager  *Manager
	clients  *sse.SSEClients
	renderer *render.Renderer
	resumes  ResumeFetcher
	users    UserResolver

	fs fs.FS
}

func NewHandler(manager *Manager, clients *sse.SSEClients, renderer *render.Renderer, resumes ResumeFetcher, users UserResolver, fs fs.FS) *Handler {
	return &Handler{
		manager:  manager,
		clients:  clients,
		renderer: renderer,
		resumes:  resumes,
		users:    users,
		fs:       fs,
	}
}

// EventPublisher forwards session events to the SSE clients subscribed to
// the draft.
func EventPublisher(clients *sse.SSEClients) func(Event) {
	return func(ev Event) {
		clients.Broadcast(string(ev.DraftID), eventMessage(ev))
	}
}

func eventMessage(ev Event) sse.Message {
	data, err := json.Marshal(ev)
	if err != nil {
		editorLogger.Error().Err(err).Msg("Failed to encode editor event")
		return sse.Message{Event: string(ev.Kind)}
	}
	return sse.Message{Event: string(ev.Kind), Data: string(data)}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.Editor, h.ServeEditor)
	mux.HandleFunc("GET "+routes.EditorNew, h.ServeNewDraft)
	mux.HandleFunc("GET "+routes.EditorState, h.withSession(h.serveState))
	mux.HandleFunc("POST "+routes.EditorContent, h.withSession(h.serveContent))
	mux.HandleFunc("POST "+routes.EditorTitle, h.withSession(h.serveTitle))
	mux.HandleFunc("POST "+routes.EditorSave, h.withSession(h.serveSave))
	mux.HandleFunc("POST "+routes.EditorShare, h.withSession(h.serveShare))
	mux.HandleFunc("POST "+routes.EditorToggle, h.withSession(h.serveToggle))
	mux.HandleFunc("POST "+routes.EditorDismiss, h.withSession(h.serveDismiss))
	mux.HandleFunc("POST "+routes.EditorPreview, h.withSession(h.servePreview))
	mux.HandleFunc("GET "+routes.EditorEvents, h.withSession(h.serveEvents))
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

// ServeEditor renders the editor for the session named by the draft cookie,
// for a stored resume given by ?resume=, or for a fresh draft.
func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	user := h.currentUser(r)

	var session *Session
	if resumeID := r.URL.Query().Get("resume"); resumeID != "" {
		resume, err := h.resumes.FetchByID(r.Context(), model.ResumeID(resumeID))
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, config.ErrResumeNotFound, http.StatusNotFound)
			return
		} else if err != nil {
			log.Error().Err(err).Str("resume_id", resumeID).Msg("Failed to load resume for editing")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}

		if !resume.EditableBy(user) {
			target := routes.AuthLogin + "?redirect=" + r.URL.RequestURI()
			if resume.Owner == "" {
				target = routes.ResumePath(resumeID)
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		session = h.manager.OpenDraft(model.Draft{
			ID:      resume.ID,
			Title:   resume.Title,
			Content: string(resume.Markdown),
			Owner:   resume.Owner,
		})
	} else if cookie, err := r.Cookie(config.CookieDraftID); err == nil {
		session, _ = h.manager.Get(model.ResumeID(cookie.Value))
	}

	if session == nil {
		session = h.manager.Open(user)
	}
	if user != "" && session.Owner() == "" {
		session.SetOwner(user)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieDraftID,
		Value:    string(session.ID()),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	tmpl, err := template.ParseFS(h.fs, config.TemplatesLocalDir+"/"+config.TemplateLayout, config.TemplatesLocalDir+"/"+config.TemplateEditor)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse editor template")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state := session.State()
	data := struct {
		*model.PageData
		DraftID   string
		State     State
		Preview   template.HTML
		Shortcuts []Shortcut
	}{
		PageData:  model.NewPageData(r),
		DraftID:   string(session.ID()),
		State:     state,
		Preview:   h.renderer.Preview([]byte(state.Draft.Content), theme.GetSyntaxThemeFromRequest(r)),
		Shortcuts: markdownShortcuts,
	}

	w.Header().Set(config.HETag, util.ContentHash([]byte(data.Theme+data.SyntaxTheme+data.DraftID)))
	if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		log.Error().Err(err).Msg("Failed to render editor")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ServeNewDraft closes the current draft session and starts over.
func (h *Handler) ServeNewDraft(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(config.CookieDraftID); err == nil {
		h.manager.CloseSession(model.ResumeID(cookie.Value))
	}

	http.SetCookie(w, &http.Cookie{
		Name:   config.CookieDraftID,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.Header().Add(config.HHxRedirect, routes.Editor)
	http.Redirect(w, r, routes.Editor, http.StatusFound)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.manager.Get(model.ResumeID(r.PathValue("id")))
		if !ok {
			http.Error(w, config.ErrSessionNotFound, http.StatusNotFound)
			return
		}

		if owner := s.Owner(); owner != "" && owner != h.currentUser(r) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next(w, r, s)
	}
}

type stateResponse struct {
	DraftID      string        `json:"draft_id"`
	Title        string        `json:"title"`
	Status       string        `json:"status"`
	Pending      bool          `json:"pending"`
	Mode         string        `json:"mode"`
	Notification *Notification `json:"notification,omitempty"`
	ShareURL     string        `json:"share_url,omitempty"`
}

func newStateResponse(state State) stateResponse {
	resp := stateResponse{
		DraftID: string(state.Draft.ID),
		Title:   state.Draft.Title,
		Status:  state.Status.String(),
		Pending: state.Pending,
		Mode:    state.Mode.String(),
	}
	if state.Notification.Visible {
		n := state.Notification
		resp.Notification = &n
	}
	return resp
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	var persistErr *PersistError
	var shareErr *ShareError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyTitle), errors.Is(err, ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSessionClosed):
		return http.StatusGone
	case errors.As(err, &persistErr), errors.As(err, &shareErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) serveState(w http.ResponseWriter, r *http.Request, s *Session) {
	writeJSON(w, r, http.StatusOK, newStateResponse(s.State()))
}

// parseSeq reads the client's edit sequence number. Requests without one
// are unnumbered.
func parseSeq(r *http.Request) (uint64, error) {
	raw := r.FormValue("seq")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (h *Handler) serveContent(w http.ResponseWriter, r *http.Request, s *Session) {
	seq, err := parseSeq(r)
	if err != nil {
		http.Error(w, config.ErrInvalidSeq, http.StatusBadRequest)
		return
	}
	if _, err := s.UpdateContentAt(seq, r.FormValue("content")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveTitle(w http.ResponseWriter, r *http.Request, s *Session) {
	seq, err := parseSeq(r)
	if err != nil {
		http.Error(w, config.ErrInvalidSeq, http.StatusBadRequest)
		return
	}
	if _, err := s.UpdateTitleAt(seq, r.FormValue("title")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveSave(w http.ResponseWriter, r *http.Request, s *Session) {
	err := s.RequestManualSave(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("draft_id", string(s.ID())).Msg("Manual save not completed")
	}
	writeJSON(w, r, statusFor(err), newStateResponse(s.State()))
}

func (h *Handler) serveShare(w http.ResponseWriter, r *http.Request, s *Session) {
	link, err := s.RequestShare(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("draft_id", string(s.ID())).Msg("Share not completed")
	}

	resp := newStateResponse(s.State())
	resp.ShareURL = link.URL
	writeJSON(w, r, statusFor(err), resp)
}

func (h *Handler) serveToggle(w http.ResponseWriter, r *http.Request, s *Session) {
	if raw := r.FormValue("mode"); raw != "" {
		mode, ok := ParseViewMode(raw)
		if !ok {
			http.Error(w, "unknown view mode", http.StatusBadRequest)
			return
		}
		s.SetViewMode(mode)
	} else {
		s.ToggleViewMode()
	}
	writeJSON(w, r, http.StatusOK, newStateResponse(s.State()))
}

func (h *Handler) serveDismiss(w http.ResponseWriter, r *http.Request, s *Session) {
	s.DismissNotification()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) servePreview(w http.ResponseWriter, r *http.Request, s *Session) {
	content := s.State().Draft.Content
	preview := h.renderer.Preview([]byte(content), theme.GetSyntaxThemeFromRequest(r))

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(preview))
}

func (h *Handler) serveEvents(w http.ResponseWriter, r *http.Request, s *Session) {
	state := s.State()

	initial := []sse.Message{eventMessage(Event{
		Kind:    EventStatus,
		DraftID: s.ID(),
		Status:  state.Status.String(),
		Pending: state.Pending,
	})}
	if state.Notification.Visible {
		n := state.Notification
		initial = append(initial, eventMessage(Event{Kind: EventNotification, DraftID: s.ID(), Notification: &n}))
	}

	h.clients.Stream(w, r, string(s.ID()), initial...)
}
