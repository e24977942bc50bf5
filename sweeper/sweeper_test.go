package sweeper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancsta/studai/taskstore"
)

type memNotifier struct {
	msgs []string
}

func (m *memNotifier) Notify(txt string) error {
	m.msgs = append(m.msgs, txt)
	return nil
}

func newTestSweeper(t *testing.T, tasks []taskstore.Task) (*Sweeper, *taskstore.Store, *memNotifier) {
	t.Helper()
	store := taskstore.New(filepath.Join(t.TempDir(), "tasks.json"), nil)
	if tasks != nil {
		require.NoError(t, store.Write(tasks))
	}
	n := &memNotifier{}

	return New(store, n, nil), store, n
}

func TestRunPrunesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sw, store, n := newTestSweeper(t, []taskstore.Task{
		{Title: "past", Deadline: "2026-02-28 10:00"},
		{Title: "future", Deadline: "2026-03-10 10:00"},
	})

	require.NoError(t, sw.Run(now))

	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "future", got[0].Title)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "future")
}

func TestRunDeadlineEqualsNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sw, store, n := newTestSweeper(t, []taskstore.Task{
		{Title: "on the dot", Deadline: "2026-03-01 12:00"},
	})

	require.NoError(t, sw.Run(now))

	// equal to now counts as passed
	assert.Empty(t, store.List())
	assert.Empty(t, n.msgs)
}

func TestRunIdempotentSurvivors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sw, store, n := newTestSweeper(t, []taskstore.Task{
		{Title: "past", Deadline: "2026-02-01 10:00"},
		{Title: "soon", Deadline: "2026-03-01 18:00"},
		{Title: "later", Deadline: "2026-04-01 10:00"},
	})

	require.NoError(t, sw.Run(now))
	first := store.List()
	require.NoError(t, sw.Run(now))
	second := store.List()

	assert.Equal(t, first, second)
	// no notification dedup between runs
	assert.Len(t, n.msgs, 4)
}

func TestRunDropsMalformedDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sw, store, n := newTestSweeper(t, []taskstore.Task{
		{Title: "bad", Deadline: "next friday"},
		{Title: "good", Deadline: "2026-03-05 10:00"},
	})

	require.NoError(t, sw.Run(now))

	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Title)
	assert.Len(t, n.msgs, 1)
}

func TestRunCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("!!"), 0o644))
	store := taskstore.New(path, nil)
	n := &memNotifier{}
	sw := New(store, n, nil)

	require.NoError(t, sw.Run(time.Now()))

	// treated as empty and rewritten as such
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
	assert.Empty(t, n.msgs)
}

func TestMessageBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)

	// over a day away: deadline - now = 24h1m
	msg := Message("Essay", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), now)
	assert.Contains(t, msg, "due in 2 days")

	// tomorrow, under 24h
	msg = Message("Essay", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), now)
	assert.Contains(t, msg, "due tomorrow at 08:00")

	// today
	msg = Message("Essay", time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC), now)
	assert.Contains(t, msg, "due today at 18:30")
}
