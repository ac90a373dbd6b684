package mirror

import (
	"context"
	"encoding/csv"
	"os"
	"sync"
	"testing"

	"spese-tracker/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMirror(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleExpenses() []core.Expense {
	return []core.Expense{
		{ID: 2, UserID: 1, Date: core.NewDate(2024, 3, 15), Category: "Food", Description: "Dinner", Amount: core.Money{Cents: 3000}},
		{ID: 1, UserID: 1, Date: core.NewDate(2024, 3, 1), Category: "Food", Description: "Lunch", Amount: core.Money{Cents: 1250}},
	}
}

func TestRewriteWritesHeaderAndRows(t *testing.T) {
	m, err := NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Rewrite(context.Background(), 1, sampleExpenses()))

	rows := readMirror(t, m.Path(1))
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2", "1", "2024-03-15", "Food", "Dinner", "30.00"}, rows[1])
	assert.Equal(t, []string{"1", "1", "2024-03-01", "Food", "Lunch", "12.50"}, rows[2])
}

func TestRewriteEmptySetLeavesHeaderOnly(t *testing.T) {
	m, err := NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Rewrite(context.Background(), 1, sampleExpenses()))
	require.NoError(t, m.Rewrite(context.Background(), 1, nil))

	rows := readMirror(t, m.Path(1))
	require.Len(t, rows, 1, "empty expense set leaves a header-only file")
	assert.Equal(t, Header, rows[0])
}

func TestRewriteReplacesPreviousSnapshot(t *testing.T) {
	m, err := NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Rewrite(context.Background(), 1, sampleExpenses()))
	replacement := []core.Expense{
		{ID: 3, UserID: 1, Date: core.NewDate(2024, 4, 1), Category: "Transport", Description: "Train", Amount: core.Money{Cents: 900}},
	}
	require.NoError(t, m.Rewrite(context.Background(), 1, replacement))

	rows := readMirror(t, m.Path(1))
	require.Len(t, rows, 2)
	assert.Equal(t, "Train", rows[1][4])
}

func TestRewriteIsolatesOwners(t *testing.T) {
	m, err := NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Rewrite(context.Background(), 1, sampleExpenses()))
	require.NoError(t, m.Rewrite(context.Background(), 2, nil))

	assert.Len(t, readMirror(t, m.Path(1)), 3)
	assert.Len(t, readMirror(t, m.Path(2)), 1)
}

func TestRewriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	m, err := NewCSVMirror(dir)
	require.NoError(t, err)

	require.NoError(t, m.Rewrite(context.Background(), 1, sampleExpenses()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "spese_1.csv", entries[0].Name())
}

func TestConcurrentRewritesProduceConsistentFile(t *testing.T) {
	m, err := NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Rewrite(context.Background(), 1, sampleExpenses())
		}()
	}
	wg.Wait()

	// Whichever rewrite won, the file must be a complete snapshot.
	rows := readMirror(t, m.Path(1))
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
}
