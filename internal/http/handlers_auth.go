package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spese-tracker/internal/auth"
	"spese-tracker/internal/core"
	"spese-tracker/internal/storage"
)

const sessionCookieName = "session"

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the authenticated user set by requireAuth.
func userFromContext(r *http.Request) *core.User {
	if user, ok := r.Context().Value(userContextKey).(*core.User); ok {
		return user
	}
	return nil
}

// currentSession validates the signed session cookie against the store.
// An invalid cookie is cleared on the way out.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*storage.SessionInfo, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, auth.ErrInvalidCookie
	}

	token, err := auth.VerifyCookie(cookie.Value, s.secretKey)
	if err != nil {
		s.clearSessionCookie(w)
		return nil, err
	}

	info, err := s.storage.GetSession(r.Context(), token)
	if err != nil {
		s.clearSessionCookie(w)
		return nil, err
	}
	return info, nil
}

// requireAuth gates a handler behind a valid session. Sessions past the
// halfway point of their lifetime are renewed, so active users stay
// logged in while idle sessions expire.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		token, err := auth.VerifyCookie(cookie.Value, s.secretKey)
		if err != nil {
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		info, err := s.storage.GetSession(r.Context(), token)
		if err != nil {
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		if time.Until(info.ExpiresAt) < s.sessionTTL/2 {
			newExpiresAt := time.Now().Add(s.sessionTTL)
			if err := s.storage.RenewSession(r.Context(), token, newExpiresAt); err == nil {
				s.setSessionCookie(w, cookie.Value, newExpiresAt)
			}
		}

		ctx := context.WithValue(r.Context(), userContextKey, info.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", map[string]any{
		"Flash": popFlash(w, r),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	switch {
	case username == "":
		setFlash(w, "Inserisci uno username")
	case password == "":
		setFlash(w, "Inserisci una password")
	case len(password) < 8:
		setFlash(w, "La password deve avere almeno 8 caratteri")
	case password != confirm:
		setFlash(w, "Le password non coincidono")
	default:
		hash, err := auth.HashPassword(password)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		user, err := s.storage.CreateUser(r.Context(), username, hash)
		if errors.Is(err, core.ErrDuplicateUsername) {
			setFlash(w, "Username già in uso")
			http.Redirect(w, r, "/auth/register", http.StatusSeeOther)
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to create user", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "username", username)
		if s.startSession(w, r, user.ID) {
			http.Redirect(w, r, "/spese", http.StatusSeeOther)
		}
		return
	}

	http.Redirect(w, r, "/auth/register", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentSession(w, r); err == nil {
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", map[string]any{
		"Flash": popFlash(w, r),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := s.storage.GetUserByUsername(r.Context(), username)
	// The same message covers unknown user and wrong password, so the
	// login form does not leak which usernames exist.
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		setFlash(w, "Username o password non validi")
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "username", username)
	if s.startSession(w, r, user.ID) {
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if token, err := auth.VerifyCookie(cookie.Value, s.secretKey); err == nil {
			if err := s.storage.DeleteSession(r.Context(), token); err != nil {
				slog.WarnContext(r.Context(), "Failed to delete session", "error", err)
			}
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// startSession creates a DB session and sets the signed cookie. On
// failure it writes a 500 and returns false; callers must not redirect.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) bool {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate session token", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	if err := s.storage.CreateSession(r.Context(), token, userID, expiresAt); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	s.setSessionCookie(w, auth.SignToken(token, s.secretKey), expiresAt)
	return true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
