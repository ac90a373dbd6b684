// Package services orchestrates expense operations across the database,
// the per-user mirrors, the category cache, and the optional AMQP sync
// queue. The database write is the unit of truth: mirror and queue
// failures are logged and never roll it back.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"spese-tracker/internal/cache"
	"spese-tracker/internal/core"
	"spese-tracker/internal/mirror"
	"spese-tracker/internal/storage"
)

// Publisher is the slice of the AMQP client the service needs.
type Publisher interface {
	PublishMirrorSync(ctx context.Context, userID int64) error
}

type ExpenseService struct {
	storage    *storage.SQLiteRepository
	mirror     mirror.Rewriter
	publisher  Publisher
	categories *cache.LRU[[]string]
	months     *cache.LRU[[]string]
}

func NewExpenseService(repo *storage.SQLiteRepository, rewriter mirror.Rewriter, publisher Publisher) *ExpenseService {
	return &ExpenseService{
		storage:    repo,
		mirror:     rewriter,
		publisher:  publisher,
		categories: cache.NewLRU[[]string](1000, 10*time.Minute),
		months:     cache.NewLRU[[]string](1000, 10*time.Minute),
	}
}

// Caches exposes the service's caches for periodic cleanup registration.
func (s *ExpenseService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.categories, s.months}
}

// CreateExpense validates and stores a new expense, then refreshes the
// owner's mirror.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.afterMutation(ctx, e.UserID)
	return id, nil
}

// UpdateExpense rewrites an expense the user owns. A missing or
// foreign-owned id surfaces as core.ErrNotFound.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.afterMutation(ctx, e.UserID)
	return nil
}

// DeleteExpense removes an expense the user owns.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id, userID int64) error {
	if err := s.storage.DeleteExpense(ctx, id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.afterMutation(ctx, userID)
	return nil
}

// GetExpense fetches a single expense the user owns.
func (s *ExpenseService) GetExpense(ctx context.Context, id, userID int64) (*core.Expense, error) {
	return s.storage.GetExpense(ctx, id, userID)
}

// ListExpenses returns the user's expenses, newest first, optionally
// narrowed by category and month.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, f core.Filters) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID, f)
}

// Total sums a list of expenses in cents. Summing int64 cents is exact;
// no floating point is involved.
func (s *ExpenseService) Total(expenses []core.Expense) core.Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return core.Money{Cents: cents}
}

// Categories returns the user's distinct categories, cached briefly.
func (s *ExpenseService) Categories(ctx context.Context, userID int64) ([]string, error) {
	key := cacheKey(userID)
	if cats, ok := s.categories.Get(key); ok {
		return cats, nil
	}

	cats, err := s.storage.DistinctCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	s.categories.Set(key, cats)
	return cats, nil
}

// Months returns the user's distinct expense months, cached briefly.
func (s *ExpenseService) Months(ctx context.Context, userID int64) ([]string, error) {
	key := cacheKey(userID)
	if months, ok := s.months.Get(key); ok {
		return months, nil
	}

	months, err := s.storage.DistinctMonths(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("distinct months: %w", err)
	}
	s.months.Set(key, months)
	return months, nil
}

// afterMutation refreshes everything derived from the user's expense
// set: the local mirror, the caches, and the worker queue. Failures
// here are logged, not returned, so a mirror outage cannot block
// bookkeeping.
func (s *ExpenseService) afterMutation(ctx context.Context, userID int64) {
	key := cacheKey(userID)
	s.categories.Delete(key)
	s.months.Delete(key)

	if s.mirror != nil {
		expenses, err := s.storage.ListExpenses(ctx, userID, core.Filters{})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read expenses for mirror rewrite",
				"user_id", userID, "error", err)
		} else if err := s.mirror.Rewrite(ctx, userID, expenses); err != nil {
			slog.ErrorContext(ctx, "Failed to rewrite mirror",
				"user_id", userID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMirrorSync(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish mirror sync message",
				"user_id", userID, "error", err)
		}
	}
}

func cacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (s *ExpenseService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
