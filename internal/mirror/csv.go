package mirror

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"spese-tracker/internal/core"
)

// CSVMirror writes one file per user under a fixed directory. Rewrites
// go to a temporary file first and are renamed into place, so readers
// never observe a half-written snapshot. Rewrites for the same owner
// are serialized with a per-owner mutex; concurrent owners proceed
// independently.
type CSVMirror struct {
	dir string

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewCSVMirror(dir string) (*CSVMirror, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	return &CSVMirror{
		dir:   dir,
		locks: make(map[int64]*sync.Mutex),
	}, nil
}

// Path returns the mirror file location for a user.
func (m *CSVMirror) Path(userID int64) string {
	return filepath.Join(m.dir, fmt.Sprintf("spese_%d.csv", userID))
}

// Rewrite replaces the user's snapshot with the given expense set.
func (m *CSVMirror) Rewrite(ctx context.Context, userID int64, expenses []core.Expense) error {
	lock := m.ownerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tmp, err := os.CreateTemp(m.dir, fmt.Sprintf("spese_%d_*.tmp", userID))
	if err != nil {
		return fmt.Errorf("create temp mirror file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeSnapshot(tmp, expenses); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write mirror snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp mirror file: %w", err)
	}

	if err := os.Rename(tmpPath, m.Path(userID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace mirror file: %w", err)
	}

	slog.InfoContext(ctx, "Mirror rewritten",
		"user_id", userID,
		"rows", len(expenses),
		"mirror_path", m.Path(userID))

	return nil
}

func (m *CSVMirror) ownerLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

func writeSnapshot(f *os.File, expenses []core.Expense) error {
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, e := range expenses {
		if err := w.Write(Record(e)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
