package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"spese-tracker/internal/core"
	"spese-tracker/internal/mirror"
)

// handleExport streams the current (optionally filtered) expense list
// as a CSV attachment. The file shares its header and row format with
// the per-user mirror.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	filters := core.Filters{
		Category: strings.TrimSpace(r.URL.Query().Get("categoria")),
		Month:    strings.TrimSpace(r.URL.Query().Get("mese")),
	}

	expenses, err := s.service.ListExpenses(r.Context(), user.ID, filters)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export expenses", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(mirror.Header); err == nil {
		for _, e := range expenses {
			if err := cw.Write(mirror.Record(e)); err != nil {
				break
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "Failed to build CSV export", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(filters)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// exportFilename builds spese[_<categoria>][_<mese>].csv from the
// active filters.
func exportFilename(f core.Filters) string {
	name := "spese"
	if f.Category != "" {
		name += "_" + sanitizeFilenamePart(f.Category)
	}
	if f.Month != "" {
		name += "_" + sanitizeFilenamePart(f.Month)
	}
	return name + ".csv"
}

func sanitizeFilenamePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, s)
}
