// Package form parses and validates the HTML forms the application accepts.
package form

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/notes/internal/slug"
)

const (
	TitleMaxLength    = 100
	UsernameMaxLength = 150
	PasswordMinLength = 8

	// NonField keys errors that belong to the form as a whole.
	NonField = "__all__"

	msgRequired = "This field is required."
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
)

// Errors maps a field name to its validation messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

// Note is the create/edit form for a note.
type Note struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Slug   string `json:"slug"`
	Errors Errors `json:"-"`
}

// NoteFromRequest reads the note fields from a submitted form.
func NoteFromRequest(r *http.Request) *Note {
	return &Note{
		Title:  strings.TrimSpace(r.PostFormValue("title")),
		Text:   strings.TrimSpace(r.PostFormValue("text")),
		Slug:   strings.TrimSpace(r.PostFormValue("slug")),
		Errors: Errors{},
	}
}

// Validate checks field-level rules. Slug uniqueness is checked separately.
func (f *Note) Validate() bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	f.Title = strings.TrimSpace(f.Title)
	f.Text = strings.TrimSpace(f.Text)
	f.Slug = strings.TrimSpace(f.Slug)

	switch {
	case f.Title == "":
		f.Errors.Add("title", msgRequired)
	case utf8.RuneCountInString(f.Title) > TitleMaxLength:
		f.Errors.Add("title", "Ensure this value has at most 100 characters.")
	}

	if f.Slug != "" {
		if !slugPattern.MatchString(f.Slug) {
			f.Errors.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
		} else if len(f.Slug) > slug.MaxLength {
			f.Errors.Add("slug", "Ensure this value has at most 100 characters.")
		}
	}
	return f.Errors.Valid()
}

// Signup is the registration form.
type Signup struct {
	Username  string
	Password1 string
	Password2 string
	Errors    Errors
}

func SignupFromRequest(r *http.Request) *Signup {
	return &Signup{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
		Errors:    Errors{},
	}
}

func (f *Signup) Validate() bool {
	switch {
	case f.Username == "":
		f.Errors.Add("username", msgRequired)
	case utf8.RuneCountInString(f.Username) > UsernameMaxLength:
		f.Errors.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(f.Username):
		f.Errors.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	switch {
	case f.Password1 == "":
		f.Errors.Add("password1", msgRequired)
	case utf8.RuneCountInString(f.Password1) < PasswordMinLength:
		f.Errors.Add("password1", "This password is too short. It must contain at least 8 characters.")
	}

	if f.Password2 == "" {
		f.Errors.Add("password2", msgRequired)
	} else if f.Password1 != "" && f.Password1 != f.Password2 {
		f.Errors.Add("password2", "The two password fields did not match.")
	}
	return f.Errors.Valid()
}

// Login is the credentials form. Next carries the page to return to.
type Login struct {
	Username string
	Password string
	Next     string
	Errors   Errors
}

func LoginFromRequest(r *http.Request) *Login {
	return &Login{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Next:     r.PostFormValue("next"),
		Errors:   Errors{},
	}
}

func (f *Login) Validate() bool {
	if f.Username == "" {
		f.Errors.Add("username", msgRequired)
	}
	if f.Password == "" {
		f.Errors.Add("password", msgRequired)
	}
	return f.Errors.Valid()
}
