package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"spese-tracker/internal/core"
)

// notFoundMessage deliberately covers both a missing expense and one
// owned by another user.
const notFoundMessage = "Spesa non trovata o non autorizzata"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	expenses, err := s.service.ListExpenses(r.Context(), user.ID, core.Filters{})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	categories, err := s.service.Categories(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load categories", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "index.html", map[string]any{
		"Username":   user.Username,
		"Expenses":   expenses,
		"Total":      s.service.Total(expenses),
		"Categories": categories,
		"Flash":      popFlash(w, r),
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	expense, msg := parseExpenseForm(r)
	if msg != "" {
		setFlash(w, msg)
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
		return
	}
	expense.UserID = user.ID

	if _, err := s.service.CreateExpense(r.Context(), expense); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create expense", "user_id", user.ID, "error", err)
		setFlash(w, "Impossibile salvare la spesa")
	}
	http.Redirect(w, r, "/spese", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	expense, err := s.service.GetExpense(r.Context(), id, user.ID)
	if errors.Is(err, core.ErrNotFound) {
		setFlash(w, notFoundMessage)
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load expense", "id", id, "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "edit.html", map[string]any{
		"Username": user.Username,
		"Expense":  expense,
		"Flash":    popFlash(w, r),
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	expense, msg := parseExpenseForm(r)
	if msg != "" {
		setFlash(w, msg)
		http.Redirect(w, r, "/spese/edit/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	expense.ID = id
	expense.UserID = user.ID

	err = s.service.UpdateExpense(r.Context(), expense)
	if errors.Is(err, core.ErrNotFound) {
		setFlash(w, notFoundMessage)
		http.Redirect(w, r, "/spese", http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to update expense", "id", id, "user_id", user.ID, "error", err)
		setFlash(w, "Impossibile aggiornare la spesa")
	}
	http.Redirect(w, r, "/spese", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = s.service.DeleteExpense(r.Context(), id, user.ID)
	if errors.Is(err, core.ErrNotFound) {
		setFlash(w, notFoundMessage)
	} else if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete expense", "id", id, "user_id", user.ID, "error", err)
		setFlash(w, "Impossibile eliminare la spesa")
	}
	http.Redirect(w, r, "/spese", http.StatusSeeOther)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	filters := core.Filters{
		Category: strings.TrimSpace(r.URL.Query().Get("categoria")),
		Month:    strings.TrimSpace(r.URL.Query().Get("mese")),
	}

	expenses, err := s.service.ListExpenses(r.Context(), user.ID, filters)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to filter expenses", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	categories, err := s.service.Categories(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load categories", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	months, err := s.service.Months(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load months", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "report.html", map[string]any{
		"Username":   user.Username,
		"Expenses":   expenses,
		"Total":      s.service.Total(expenses),
		"Categories": categories,
		"Months":     months,
		"Category":   filters.Category,
		"Month":      filters.Month,
		"Flash":      popFlash(w, r),
	})
}
