package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/notes/internal/auth"
	"github.com/dukerupert/notes/internal/form"
	"github.com/dukerupert/notes/internal/store"
)

const (
	defaultLoginRedirect = "/notes"
	signupRedirect       = "/"
	invalidLoginMessage  = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	usernameTakenMessage = "A user with that username already exists."
)

type AuthHandler struct {
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	pages         *Renderer
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	pages *Renderer,
	sessionTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:     us,
		sessionStore:  ss,
		pages:         pages,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	f := &form.Login{Next: r.URL.Query().Get("next"), Errors: form.Errors{}}
	h.pages.Render(w, r, http.StatusOK, "login.html", map[string]any{"Form": f})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := form.LoginFromRequest(r)
	if f.Next == "" {
		f.Next = r.URL.Query().Get("next")
	}
	if !f.Validate() {
		h.pages.Render(w, r, http.StatusOK, "login.html", map[string]any{"Form": f})
		return
	}

	user, err := h.userStore.GetByUsername(f.Username)
	if err != nil {
		h.pages.ServerError(w, r, "login lookup", err)
		return
	}

	ok := false
	if user != nil {
		ok, err = auth.CheckPassword(user.PasswordHash, f.Password)
		if err != nil {
			h.pages.ServerError(w, r, "check password", err)
			return
		}
	}
	if !ok {
		h.logger.Info("login failed", "username", f.Username)
		f.Errors.Add(form.NonField, invalidLoginMessage)
		h.pages.Render(w, r, http.StatusOK, "login.html", map[string]any{"Form": f})
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.pages.ServerError(w, r, "create session", err)
		return
	}
	h.logger.Info("login", "user_id", user.ID)

	target := defaultLoginRedirect
	if f.Next != "" && isValidRedirect(f.Next) {
		target = f.Next
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout ends the current session, if any, and renders the logged-out page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.SessionToken(r); token != "" {
		sess, err := h.sessionStore.GetByToken(token)
		if err != nil {
			h.logger.Error("logout lookup", "error", err)
		}
		if sess != nil {
			if err := h.sessionStore.Delete(sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}
	auth.ClearSessionCookie(w)

	// The layout must not show the caller as logged in anymore.
	r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{}))
	h.pages.Render(w, r, http.StatusOK, "logged_out.html", nil)
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": &form.Signup{Errors: form.Errors{}}})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	f := form.SignupFromRequest(r)
	f.Validate()

	if !f.Errors.Has("username") {
		existing, err := h.userStore.GetByUsername(f.Username)
		if err != nil {
			h.pages.ServerError(w, r, "signup lookup", err)
			return
		}
		if existing != nil {
			f.Errors.Add("username", usernameTakenMessage)
		}
	}
	if !f.Errors.Valid() {
		h.pages.Render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": f})
		return
	}

	hash, err := auth.HashPassword(f.Password1)
	if err != nil {
		h.pages.ServerError(w, r, "hash password", err)
		return
	}

	user, err := h.userStore.Create(f.Username, hash)
	if errors.Is(err, store.ErrUsernameTaken) {
		f.Errors.Add("username", usernameTakenMessage)
		h.pages.Render(w, r, http.StatusOK, "signup.html", map[string]any{"Form": f})
		return
	}
	if err != nil {
		h.pages.ServerError(w, r, "create user", err)
		return
	}
	if err := h.startSession(w, user.ID); err != nil {
		h.pages.ServerError(w, r, "create session", err)
		return
	}
	h.logger.Info("signup", "user_id", user.ID, "username", user.Username)

	http.Redirect(w, r, signupRedirect, http.StatusFound)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID int64) error {
	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, sess.Token, h.sessionTTL, h.secureCookies)
	return nil
}
