package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/store"
)

// LoginPath is where anonymous callers are sent to authenticate.
const LoginPath = "/auth/login"

// Identify resolves the session cookie to an auth.Identity and stores it in
// the request context. Requests without a valid session continue anonymously.
func Identify(sessionStore *store.SessionStore, userStore *store.UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(token)
			if err != nil {
				logger.Error("lookup session", "error", err)
			}
			if err != nil || sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userStore.GetByID(sess.UserID)
			if err != nil {
				logger.Error("lookup session user", "error", err)
			}
			if err != nil || user == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := auth.Identity{
				UserID:    user.ID,
				Username:  user.Username,
				SessionID: sess.ID,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth redirects anonymous callers to the login page, carrying the
// requested URI in the next parameter.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Current(r.Context()).Authenticated() {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIAuth answers anonymous callers with a 401 JSON body.
func RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Current(r.Context()).Authenticated() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL builds the login redirect for the given request URI. Everything
// but unreserved characters and slashes is percent-encoded, spaces as %20.
func LoginURL(next string) string {
	escaped := strings.NewReplacer("+", "%20", "%2F", "/").Replace(url.QueryEscape(next))
	return LoginPath + "?next=" + escaped
}
