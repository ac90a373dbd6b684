// Package http serves the expense tracker web UI.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"spese-tracker/internal/middleware/ratelimit"
	"spese-tracker/internal/middleware/security"
	"spese-tracker/internal/middleware/trace"
	"spese-tracker/internal/services"
	"spese-tracker/internal/storage"
	appweb "spese-tracker/web"
)

type Config struct {
	Addr               string
	SecretKey          string
	SessionTTL         time.Duration
	RateLimitPerMinute int
	SecureCookie       bool
}

type Server struct {
	http.Server

	templates *template.Template
	service   *services.ExpenseService
	storage   *storage.SQLiteRepository

	secretKey    string
	sessionTTL   time.Duration
	secureCookie bool

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware, and templates, returning a
// ready-to-run server.
func NewServer(cfg Config, svc *services.ExpenseService, repo *storage.SQLiteRepository) (*Server, error) {
	templates, err := template.New("").Funcs(template.FuncMap{
		"euros": formatEuros,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:    templates,
		service:      svc,
		storage:      repo,
		secretKey:    cfg.SecretKey,
		sessionTTL:   cfg.SessionTTL,
		secureCookie: cfg.SecureCookie,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /auth/register", s.handleRegisterForm)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("GET /auth/login", s.handleLoginForm)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.Handle("GET /spese", s.requireAuth(s.handleIndex))
	mux.Handle("POST /spese/add", s.requireAuth(s.handleAdd))
	mux.Handle("GET /spese/edit/{id}", s.requireAuth(s.handleEditForm))
	mux.Handle("POST /spese/edit/{id}", s.requireAuth(s.handleEdit))
	mux.Handle("POST /spese/delete/{id}", s.requireAuth(s.handleDelete))
	mux.Handle("GET /spese/filter", s.requireAuth(s.handleFilter))
	mux.Handle("GET /spese/export", s.requireAuth(s.handleExport))

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(fileServer))
	}

	ipExtractor := security.NewClientIPExtractor()
	traceMW := trace.NewMiddleware(ipExtractor.ExtractClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(ipExtractor.ExtractClientIP)(handler)
	handler = headersMW.Middleware(handler)
	handler = traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentSession(w, r); err == nil {
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
