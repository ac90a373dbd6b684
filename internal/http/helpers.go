package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"spese-tracker/internal/core"
)

const flashCookieName = "flash"

// setFlash stores a one-shot message for the next rendered page.
// Values are base64-encoded because cookie values cannot carry spaces
// or accented characters.
func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.URLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// parseExpenseForm validates the shared add/edit form fields. The
// returned message is user-facing and empty on success.
func parseExpenseForm(r *http.Request) (core.Expense, string) {
	dateStr := strings.TrimSpace(r.FormValue("data"))
	category := sanitizeInput(r.FormValue("categoria"))
	description := sanitizeInput(r.FormValue("descrizione"))
	amountStr := strings.TrimSpace(r.FormValue("importo"))

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, "Data non valida (formato atteso: AAAA-MM-GG)"
	}
	if category == "" {
		return core.Expense{}, "Inserisci una categoria"
	}
	if description == "" {
		return core.Expense{}, "Inserisci una descrizione"
	}
	if len(category) > 200 || len(description) > 200 {
		return core.Expense{}, "Categoria e descrizione non possono superare 200 caratteri"
	}

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return core.Expense{}, "Importo non valido: inserisci un numero positivo"
	}

	return core.Expense{
		Date:        date,
		Category:    category,
		Description: description,
		Amount:      core.Money{Cents: cents},
	}, ""
}

// pathID parses the {id} path segment of edit/delete routes.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// formatEuros renders cents as a Euro string like "€12,34".
func formatEuros(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
