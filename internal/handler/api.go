package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/notes/internal/access"
	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/form"
	"github.com/dukerupert/notes/internal/model"
	"github.com/dukerupert/notes/internal/websocket"
)

func decodeNote(r *http.Request) (*form.Note, error) {
	var f form.Note
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		return nil, err
	}
	f.Errors = form.Errors{}
	return &f, nil
}

func (h *NoteHandler) APIList(w http.ResponseWriter, r *http.Request) {
	id := auth.Current(r.Context())
	notes, err := h.noteStore.ListByAuthor(id.UserID)
	if err != nil {
		h.logger.Error("list notes", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notes"})
		return
	}
	writeJSON(w, http.StatusOK, access.Visible(id, notes))
}

func (h *NoteHandler) APICreate(w http.ResponseWriter, r *http.Request) {
	f, err := decodeNote(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	id := auth.Current(r.Context())
	n, err := h.save(id, f, nil)
	if err != nil {
		h.logger.Error("create note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create note"})
		return
	}
	if n == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": f.Errors})
		return
	}

	h.publish(n, websocket.ActionCreated)
	writeJSON(w, http.StatusCreated, n)
}

func (h *NoteHandler) APIGet(w http.ResponseWriter, r *http.Request) {
	n, ok := h.apiLookup(w, r, access.ViewDetail)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NoteHandler) APIUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.apiLookup(w, r, access.Edit)
	if !ok {
		return
	}

	f, err := decodeNote(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	n, err := h.save(auth.Current(r.Context()), f, existing)
	if errors.Is(err, access.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return
	}
	if err != nil {
		h.logger.Error("update note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update note"})
		return
	}
	if n == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": f.Errors})
		return
	}

	h.publish(n, websocket.ActionUpdated)
	writeJSON(w, http.StatusOK, n)
}

func (h *NoteHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	n, ok := h.apiLookup(w, r, access.Delete)
	if !ok {
		return
	}
	if err := h.noteStore.Delete(n.ID); err != nil {
		h.logger.Error("delete note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete note"})
		return
	}

	h.publish(n, websocket.ActionDeleted)
	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) apiLookup(w http.ResponseWriter, r *http.Request, op access.Operation) (*model.Note, bool) {
	n, err := h.lookup(r, op)
	if errors.Is(err, access.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("get note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get note"})
		return nil, false
	}
	return n, true
}
