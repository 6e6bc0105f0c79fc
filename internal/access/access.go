// Package access decides who may see or change a note.
//
// Denial is always reported as ErrNotFound so that another user's note is
// indistinguishable from one that does not exist.
package access

import (
	"errors"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/model"
)

// ErrNotFound is returned for missing notes and for notes the caller may not touch.
var ErrNotFound = errors.New("note not found")

type Operation string

const (
	ViewDetail Operation = "view_detail"
	Edit       Operation = "edit"
	Delete     Operation = "delete"
)

// Authorize returns nil when id may perform op on n.
func Authorize(id auth.Identity, n *model.Note, op Operation) error {
	switch op {
	case ViewDetail, Edit, Delete:
	default:
		return ErrNotFound
	}
	if n == nil || !Owns(id, n) {
		return ErrNotFound
	}
	return nil
}

// Owns reports whether id is the author of n. Anonymous identities own nothing.
func Owns(id auth.Identity, n *model.Note) bool {
	return id.Authenticated() && n.AuthorID == id.UserID
}

// Visible returns the notes id authored, preserving order.
func Visible(id auth.Identity, notes []model.Note) []model.Note {
	out := make([]model.Note, 0, len(notes))
	for i := range notes {
		if Owns(id, &notes[i]) {
			out = append(out, notes[i])
		}
	}
	return out
}
