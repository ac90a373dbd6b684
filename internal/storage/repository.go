package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spese-tracker/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the authoritative store for users, expenses and
// sessions. Every expense operation is scoped by the owner's user id;
// a missing row and a row owned by someone else are indistinguishable
// to callers (both surface core.ErrNotFound).
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser stores a new user with an already-hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (*core.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, core.ErrEmptyUsername
	}
	if passwordHash == "" {
		return nil, core.ErrEmptyPassword
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "username", username)
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateExpense inserts a validated expense and returns its new id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, date, category, description, amount_cents)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Date.String(), e.Category, e.Description, e.Amount.Cents)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return id, nil
}

// UpdateExpense replaces all mutable fields of an owned expense.
// Ownership is part of the lookup key: updating someone else's expense
// reports core.ErrNotFound, same as a nonexistent id.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, category = ?, description = ?, amount_cents = ?
		 WHERE id = ? AND user_id = ?`,
		e.Date.String(), e.Category, e.Description, e.Amount.Cents, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", e.ID, "user_id", e.UserID)
	return nil
}

// DeleteExpense removes an owned expense under the same ownership rule
// as UpdateExpense.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id, userID int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, category, description, amount_cents
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListExpenses returns the owner's expenses ordered by date descending,
// id descending as the deterministic tie-break. Filters combine as AND.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f core.Filters) ([]core.Expense, error) {
	query := `SELECT id, user_id, date, category, description, amount_cents
		 FROM expenses WHERE user_id = ?`
	args := []any{userID}

	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Month != "" {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, f.Month)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// DistinctCategories returns the owner's category labels, deduplicated,
// sorted ascending, empty values excluded.
func (r *SQLiteRepository) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	return r.distinctStrings(ctx,
		`SELECT DISTINCT category FROM expenses
		 WHERE user_id = ? AND category <> '' ORDER BY category ASC`, userID)
}

// DistinctMonths returns the owner's YYYY-MM values, deduplicated,
// sorted descending (most recent first), empty values excluded.
func (r *SQLiteRepository) DistinctMonths(ctx context.Context, userID int64) ([]string, error) {
	return r.distinctStrings(ctx,
		`SELECT DISTINCT substr(date, 1, 7) AS month FROM expenses
		 WHERE user_id = ? AND date <> '' ORDER BY month DESC`, userID)
}

func (r *SQLiteRepository) distinctStrings(ctx context.Context, query string, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("distinct query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *core.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns the session and its user if the token exists and
// has not expired.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (*SessionInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`, token, time.Now())

	var u core.User
	var info SessionInfo
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &info.LastActivity, &info.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	info.User = &u
	return &info, nil
}

// RenewSession pushes a session's expiry forward (rolling sessions).
func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?`,
		time.Now(), newExpiresAt, token)
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes stale sessions; run periodically.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var e core.Expense
	var dateStr string
	if err := row.Scan(&e.ID, &e.UserID, &dateStr, &e.Category, &e.Description, &e.Amount.Cents); err != nil {
		return nil, err
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	e.Date = date
	return &e, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
