// Package worker rebuilds per-user mirror files from sync messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spese-tracker/internal/amqp"
	"spese-tracker/internal/core"
	"spese-tracker/internal/mirror"
	"spese-tracker/internal/storage"
)

// MirrorWorker consumes mirror sync messages and rewrites each target
// user's mirrors from the authoritative expense store. Because every
// rebuild is a full snapshot, replayed or out-of-order messages
// converge to the same result.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	rewriters []mirror.Rewriter
}

func NewMirrorWorker(repo *storage.SQLiteRepository, rewriters ...mirror.Rewriter) *MirrorWorker {
	return &MirrorWorker{
		storage:   repo,
		rewriters: rewriters,
	}
}

// HandleSyncMessage rebuilds all mirrors for the message's user.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.MirrorSyncMessage) error {
	slog.InfoContext(ctx, "Processing mirror sync message", "user_id", msg.UserID)

	expenses, err := w.storage.ListExpenses(ctx, msg.UserID, core.Filters{})
	if err != nil {
		return fmt.Errorf("list expenses for user %d: %w", msg.UserID, err)
	}

	for _, r := range w.rewriters {
		if err := r.Rewrite(ctx, msg.UserID, expenses); err != nil {
			return fmt.Errorf("rewrite mirror for user %d: %w", msg.UserID, err)
		}
	}

	slog.InfoContext(ctx, "Mirrors rebuilt",
		"user_id", msg.UserID,
		"rows", len(expenses),
		"mirrors", len(w.rewriters))

	return nil
}
