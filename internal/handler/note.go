package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/notes/internal/access"
	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/form"
	"github.com/dukerupert/notes/internal/model"
	"github.com/dukerupert/notes/internal/slug"
	"github.com/dukerupert/notes/internal/store"
	"github.com/dukerupert/notes/internal/websocket"
)

const successPath = "/done"

type NoteHandler struct {
	noteStore *store.NoteStore
	hub       *websocket.Hub
	pages     *Renderer
	logger    *slog.Logger

	// slugExists is the pre-write uniqueness check. The UNIQUE constraint
	// still decides when two writers race past it.
	slugExists func(slug string, excludeID int64) (bool, error)
}

func NewNoteHandler(ns *store.NoteStore, hub *websocket.Hub, pages *Renderer, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{noteStore: ns, hub: hub, pages: pages, logger: logger, slugExists: ns.SlugExists}
}

func (h *NoteHandler) publish(n *model.Note, action string) {
	if h.hub != nil {
		h.hub.Publish(n, action)
	}
}

// lookup resolves the {slug} path value to a note the caller may act on.
// Missing notes and notes of other users both yield access.ErrNotFound.
func (h *NoteHandler) lookup(r *http.Request, op access.Operation) (*model.Note, error) {
	n, err := h.noteStore.GetBySlug(r.PathValue("slug"))
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(auth.Current(r.Context()), n, op); err != nil {
		return nil, err
	}
	return n, nil
}

// save validates f and writes it as a new note (existing == nil) or over
// existing. A nil note with a nil error means f.Errors explains the refusal.
// If existing was deleted in the meantime save returns access.ErrNotFound.
func (h *NoteHandler) save(id auth.Identity, f *form.Note, existing *model.Note) (*model.Note, error) {
	if !f.Validate() {
		return nil, nil
	}

	var excludeID int64
	if existing != nil {
		excludeID = existing.ID
	}
	taken := func(candidate string) (bool, error) {
		return h.slugExists(candidate, excludeID)
	}

	resolved, err := slug.Resolve(f.Title, f.Slug, taken)
	var conflict *slug.ConflictError
	switch {
	case errors.As(err, &conflict):
		f.Errors.Add("slug", conflict.Message())
		return nil, nil
	case errors.Is(err, slug.ErrEmpty):
		f.Errors.Add("slug", "Could not derive a slug from the title. Please enter one.")
		return nil, nil
	case err != nil:
		return nil, err
	}

	var n *model.Note
	if existing == nil {
		n, err = h.noteStore.Create(f.Title, f.Text, resolved, id.UserID)
	} else {
		n, err = h.noteStore.Update(existing.ID, f.Title, f.Text, resolved)
	}
	if errors.Is(err, store.ErrSlugTaken) {
		// Lost a race with a concurrent write of the same slug.
		f.Errors.Add("slug", (&slug.ConflictError{Slug: resolved}).Message())
		return nil, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, access.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f.Slug = n.Slug
	return n, nil
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	id := auth.Current(r.Context())
	notes, err := h.noteStore.ListByAuthor(id.UserID)
	if err != nil {
		h.pages.ServerError(w, r, "list notes", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "list.html", map[string]any{
		"Notes": access.Visible(id, notes),
	})
}

func (h *NoteHandler) AddPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, &form.Note{Errors: form.Errors{}}, "Add note", "/add")
}

func (h *NoteHandler) Add(w http.ResponseWriter, r *http.Request) {
	id := auth.Current(r.Context())
	f := form.NoteFromRequest(r)

	n, err := h.save(id, f, nil)
	if err != nil {
		h.pages.ServerError(w, r, "create note", err)
		return
	}
	if n == nil {
		h.renderForm(w, r, f, "Add note", "/add")
		return
	}

	h.logger.Info("note created", "note_id", n.ID, "slug", n.Slug, "user_id", id.UserID)
	h.publish(n, websocket.ActionCreated)
	http.Redirect(w, r, successPath, http.StatusFound)
}

func (h *NoteHandler) Done(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "success.html", nil)
}

func (h *NoteHandler) Detail(w http.ResponseWriter, r *http.Request) {
	n, ok := h.lookupOrRespond(w, r, access.ViewDetail)
	if !ok {
		return
	}
	h.pages.Render(w, r, http.StatusOK, "detail.html", map[string]any{"Note": n})
}

func (h *NoteHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	n, ok := h.lookupOrRespond(w, r, access.Edit)
	if !ok {
		return
	}
	f := &form.Note{Title: n.Title, Text: n.Text, Slug: n.Slug, Errors: form.Errors{}}
	h.renderForm(w, r, f, "Edit note", "/edit/"+n.Slug)
}

func (h *NoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookupOrRespond(w, r, access.Edit)
	if !ok {
		return
	}
	id := auth.Current(r.Context())
	f := form.NoteFromRequest(r)

	n, err := h.save(id, f, existing)
	if errors.Is(err, access.ErrNotFound) {
		h.pages.NotFound(w, r)
		return
	}
	if err != nil {
		h.pages.ServerError(w, r, "update note", err)
		return
	}
	if n == nil {
		h.renderForm(w, r, f, "Edit note", "/edit/"+existing.Slug)
		return
	}

	h.logger.Info("note updated", "note_id", n.ID, "slug", n.Slug, "user_id", id.UserID)
	h.publish(n, websocket.ActionUpdated)
	http.Redirect(w, r, successPath, http.StatusFound)
}

func (h *NoteHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	n, ok := h.lookupOrRespond(w, r, access.Delete)
	if !ok {
		return
	}
	h.pages.Render(w, r, http.StatusOK, "delete.html", map[string]any{"Note": n})
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, ok := h.lookupOrRespond(w, r, access.Delete)
	if !ok {
		return
	}
	if err := h.noteStore.Delete(n.ID); err != nil {
		h.pages.ServerError(w, r, "delete note", err)
		return
	}

	h.logger.Info("note deleted", "note_id", n.ID, "slug", n.Slug, "user_id", n.AuthorID)
	h.publish(n, websocket.ActionDeleted)
	http.Redirect(w, r, successPath, http.StatusFound)
}

func (h *NoteHandler) lookupOrRespond(w http.ResponseWriter, r *http.Request, op access.Operation) (*model.Note, bool) {
	n, err := h.lookup(r, op)
	if errors.Is(err, access.ErrNotFound) {
		h.pages.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.pages.ServerError(w, r, "get note", err)
		return nil, false
	}
	return n, true
}

func (h *NoteHandler) renderForm(w http.ResponseWriter, r *http.Request, f *form.Note, heading, action string) {
	h.pages.Render(w, r, http.StatusOK, "form.html", map[string]any{
		"Form":    f,
		"Heading": heading,
		"Action":  action,
	})
}
