package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/web"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer(web.FS, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return rd
}

func TestNewRendererParsesEveryPage(t *testing.T) {
	rd := testRenderer(t)
	for _, page := range Pages {
		if _, ok := rd.templates[page]; !ok {
			t.Errorf("page %s not loaded", page)
		}
	}
}

func TestNewRendererMissingPage(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/layout.html": {Data: []byte(`{{block "content" .}}{{end}}`)},
	}
	if _, err := NewRenderer(fsys, slog.Default()); err == nil {
		t.Fatal("expected error for missing page templates")
	}
}

func TestRenderInjectsUser(t *testing.T) {
	rd := testRenderer(t)

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 3, Username: "carol"}))
	rec := httptest.NewRecorder()
	rd.Render(rec, req, http.StatusOK, "home.html", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Log out (carol)") {
		t.Errorf("expected logout control for carol in body")
	}
	if strings.Contains(body, `href="/auth/signup"`) {
		t.Errorf("signup link shown to a logged-in user")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	rd := testRenderer(t)
	rec := httptest.NewRecorder()
	rd.Render(rec, httptest.NewRequest("GET", "/", nil), http.StatusOK, "missing.html", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestNotFoundPage(t *testing.T) {
	rd := testRenderer(t)
	rec := httptest.NewRecorder()
	rd.NotFound(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "Not found") {
		t.Errorf("body missing not-found heading")
	}
}

func TestIsValidRedirect(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/notes", true},
		{"/edit/note-slug", true},
		{"/", true},
		{"", false},
		{"notes", false},
		{"//evil.example", false},
		{"/\\evil.example", false},
		{"https://evil.example", false},
		{"/redirect?to=https://evil.example", false},
	}
	for _, tt := range tests {
		if got := isValidRedirect(tt.path); got != tt.want {
			t.Errorf("isValidRedirect(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := string(renderMarkdown("**bold** and [link](https://example.com)\n\n<script>alert(1)</script>"))
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("missing emphasis: %s", got)
	}
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("missing link: %s", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("script not sanitized: %s", got)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "" {
		t.Errorf("zero time = %q, want empty", got)
	}
	ts := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)
	if got := formatTime(ts); got != "Mar 4, 2026 05:06" {
		t.Errorf("formatTime = %q", got)
	}
}
