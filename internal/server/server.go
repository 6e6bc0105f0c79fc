package server

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/notes/internal/handler"
	"github.com/dukerupert/notes/internal/middleware"
	"github.com/dukerupert/notes/internal/store"
	ws "github.com/dukerupert/notes/internal/websocket"
	"github.com/dukerupert/notes/web"
)

// Config holds the settings the HTTP layer needs.
type Config struct {
	SessionTTL    time.Duration
	SecureCookies bool
	// AuthRateLimit caps login and signup submissions per client IP per minute.
	AuthRateLimit int
	// TrustProxy keys the rate limiter on forwarding headers set by a
	// reverse proxy instead of the connection address.
	TrustProxy bool
}

type Server struct {
	hub          *ws.Hub
	noteH        *handler.NoteHandler
	authH        *handler.AuthHandler
	pageH        *handler.PageHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Server, error) {
	pages, err := handler.NewRenderer(web.FS, logger.With("component", "render"))
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	noteStore := store.NewNoteStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	limiter.TrustProxy(cfg.TrustProxy)

	return &Server{
		hub:          hub,
		noteH:        handler.NewNoteHandler(noteStore, hub, pages, logger.With("component", "note")),
		authH:        handler.NewAuthHandler(userStore, sessionStore, pages, cfg.SessionTTL, cfg.SecureCookies, logger.With("component", "auth")),
		pageH:        handler.NewPageHandler(pages),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  limiter,
		logger:       logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /{$}", s.pageH.Home)
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /auth/login", s.authH.LoginPage)
	mux.Handle("POST /auth/login", s.rateLimiter.Limit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("GET /auth/logout", s.authH.Logout)
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /auth/signup", s.authH.SignupPage)
	mux.Handle("POST /auth/signup", s.rateLimiter.Limit(http.HandlerFunc(s.authH.Signup)))

	s.registerProtectedRoutes(mux)
	s.registerAPIRoutes(mux)

	mux.HandleFunc("/", s.pageH.NotFound)

	identify := middleware.Identify(s.sessionStore, s.userStore, s.logger.With("component", "identify"))
	return middleware.RequestLogger(s.logger.With("component", "http"))(identify(mux))
}

// registerProtectedRoutes wires the note pages. Anonymous callers are
// redirected to the login page before any note is looked up.
func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAuth(h))
	}

	protect("GET /notes", s.noteH.List)
	protect("GET /add", s.noteH.AddPage)
	protect("POST /add", s.noteH.Add)
	protect("GET /done", s.noteH.Done)
	protect("GET /note/{slug}", s.noteH.Detail)
	protect("GET /edit/{slug}", s.noteH.EditPage)
	protect("POST /edit/{slug}", s.noteH.Edit)
	protect("GET /delete/{slug}", s.noteH.DeletePage)
	protect("POST /delete/{slug}", s.noteH.Delete)
	protect("DELETE /delete/{slug}", s.noteH.Delete)

	// WebSocket
	protect("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAPIAuth(h))
	}

	api("GET /api/notes", s.noteH.APIList)
	api("POST /api/notes", s.noteH.APICreate)
	api("GET /api/notes/{slug}", s.noteH.APIGet)
	api("PUT /api/notes/{slug}", s.noteH.APIUpdate)
	api("DELETE /api/notes/{slug}", s.noteH.APIDelete)
}
