// Package mirror maintains per-user flat-file snapshots of the expense
// store. The mirror is a derived, best-effort artifact: the database
// stays authoritative and a failed rewrite never rolls back the
// mutation that triggered it.
package mirror

import (
	"context"

	"spese-tracker/internal/core"
)

// Rewriter replaces a user's entire mirror snapshot with the given rows.
// Implementations must never expose a partially written snapshot to
// concurrent readers.
type Rewriter interface {
	Rewrite(ctx context.Context, userID int64, expenses []core.Expense) error
}

// Header is the column set shared by the CSV mirror and the export
// endpoint, in file order.
var Header = []string{"id", "user_id", "data", "categoria", "descrizione", "importo"}

// Record converts an expense to its flat-file row representation.
// The amount is a plain decimal string, never a binary float.
func Record(e core.Expense) []string {
	return []string{
		formatInt(e.ID),
		formatInt(e.UserID),
		e.Date.String(),
		e.Category,
		e.Description,
		e.Amount.String(),
	}
}
