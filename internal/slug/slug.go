// Package slug turns note titles into URL tokens and enforces slug uniqueness.
package slug

import (
	"errors"
	"strings"

	gosimple "github.com/gosimple/slug"
)

// MaxLength is the longest slug a note may carry.
const MaxLength = 100

// Warning is appended to a conflicting slug to form the field error shown to the user.
const Warning = " - such a slug already exists, please choose a unique value!"

// ErrEmpty is returned when no slug was supplied and none can be derived from the title.
var ErrEmpty = errors.New("slug cannot be derived from title")

// ConflictError reports that a slug is already used by another note.
type ConflictError struct {
	Slug string
}

func (e *ConflictError) Error() string {
	return "slug conflict: " + e.Slug
}

// Message is the user-facing text attached to the slug field.
func (e *ConflictError) Message() string {
	return e.Slug + Warning
}

// Taken reports whether a slug is already in use.
type Taken func(slug string) (bool, error)

// Set is an in-memory collection of used slugs.
type Set map[string]struct{}

func NewSet(slugs ...string) Set {
	s := make(Set, len(slugs))
	for _, v := range slugs {
		s[v] = struct{}{}
	}
	return s
}

// Taken implements the Taken contract over the set.
func (s Set) Taken(slug string) (bool, error) {
	_, ok := s[slug]
	return ok, nil
}

// Make transliterates title into a lowercase ASCII slug. Non-Latin scripts
// are transliterated phonetically, runs of other characters become a single
// hyphen, and the result is cut to MaxLength.
func Make(title string) string {
	s := gosimple.Make(title)
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-_")
	}
	return s
}

// Resolve picks the slug a note will be stored under. A requested slug is
// used verbatim; otherwise one is derived from the title. Either way the
// result must not be taken, or a *ConflictError naming it is returned.
func Resolve(title, requested string, taken Taken) (string, error) {
	candidate := requested
	if candidate == "" {
		candidate = Make(title)
		if candidate == "" {
			return "", ErrEmpty
		}
	}

	used, err := taken(candidate)
	if err != nil {
		return "", err
	}
	if used {
		return "", &ConflictError{Slug: candidate}
	}
	return candidate, nil
}
