package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/database"
	"github.com/dukerupert/notes/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db, time.Hour), store.NewUserStore(db)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func captureIdentity(t *testing.T, got *auth.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = auth.Current(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentifyNoCookie(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)

	var got auth.Identity
	handler := Identify(ss, us, discardLogger())(captureIdentity(t, &got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.Authenticated() {
		t.Errorf("identity = %+v, want anonymous", got)
	}
}

func TestIdentifyInvalidToken(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)

	var got auth.Identity
	handler := Identify(ss, us, discardLogger())(captureIdentity(t, &got))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.Authenticated() {
		t.Errorf("identity = %+v, want anonymous", got)
	}
}

func TestIdentifyValidSession(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)

	u, _ := us.Create("alice", "hash")
	sess, _ := ss.Create(u.ID)

	var got auth.Identity
	handler := Identify(ss, us, discardLogger())(captureIdentity(t, &got))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", got.UserID, u.ID)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if got.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", got.SessionID, sess.ID)
	}
}

func TestRequireAuthRedirectsWithNext(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	tests := []struct {
		target string
		want   string
	}{
		{"/add", "/auth/login?next=/add"},
		{"/notes", "/auth/login?next=/notes"},
		{"/edit/note-slug", "/auth/login?next=/edit/note-slug"},
		{"/note/a?x=1", "/auth/login?next=/note/a%3Fx%3D1"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", tt.target, nil))

		if rec.Code != http.StatusFound {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, http.StatusFound)
		}
		if loc := rec.Header().Get("Location"); loc != tt.want {
			t.Errorf("%s: Location = %q, want %q", tt.target, loc, tt.want)
		}
	}
}

func TestRequireAuthAllowsIdentified(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/add", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 1}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAPIAuth(t *testing.T) {
	handler := RequireAPIAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/notes", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("header = %q, context = %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "upstream-id" {
		t.Errorf("request id = %q, want upstream value", seen)
	}
}

func TestLoginURLEscaping(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/note/a b", "/auth/login?next=/note/a%20b"},
		{"/note/a+b", "/auth/login?next=/note/a%2Bb"},
		{"/note/a%20b", "/auth/login?next=/note/a%2520b"},
		{"/note/заметка", "/auth/login?next=/note/%D0%B7%D0%B0%D0%BC%D0%B5%D1%82%D0%BA%D0%B0"},
	}
	for _, tt := range tests {
		if got := LoginURL(tt.next); got != tt.want {
			t.Errorf("LoginURL(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}
