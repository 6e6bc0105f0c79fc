package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dukerupert/notes/internal/auth"
)

// Pages lists every page template. Each is parsed into its own set with the
// layout so their "content" blocks do not collide.
var Pages = []string{
	"home.html",
	"login.html",
	"signup.html",
	"logged_out.html",
	"list.html",
	"form.html",
	"detail.html",
	"delete.html",
	"success.html",
	"not_found.html",
}

var funcMap = template.FuncMap{
	"markdown":   renderMarkdown,
	"formatTime": formatTime,
}

var sanitizer = bluemonday.UGCPolicy()

// renderMarkdown converts note text to sanitized HTML.
func renderMarkdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(s))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return template.HTML(sanitizer.SanitizeBytes(markdown.Render(doc, renderer)))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 15:04")
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewRenderer parses templates/layout.html together with every page in Pages from fsys.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(Pages))
	for _, page := range Pages {
		tmpl, err := template.New(page).Funcs(funcMap).ParseFS(fsys, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &Renderer{templates: templates, logger: logger}, nil
}

// Render writes the named page with status. data may be nil; the caller's
// identity is always available to the layout as .User.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["User"] = auth.Current(r.Context())
	data["Path"] = r.URL.Path

	tmpl, ok := rd.templates[name]
	if !ok {
		rd.logger.Error("template not found", "name", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		rd.logger.Error("template render", "name", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the standard not-found page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, "not_found.html", nil)
}

// ServerError logs err and answers with a generic 500.
func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	rd.logger.Error(msg, "error", err, "path", r.URL.Path)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// isValidRedirect checks that a redirect path is a safe relative path.
func isValidRedirect(path string) bool {
	return strings.HasPrefix(path, "/") &&
		!strings.HasPrefix(path, "//") &&
		!strings.Contains(path, `\`) &&
		!strings.Contains(path, "://")
}
