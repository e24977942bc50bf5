package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "tasks.json"), nil)
}

func TestAppendList(t *testing.T) {
	s := newTestStore(t)

	task := Task{Title: "Essay", Deadline: "2099-01-01 10:00"}
	require.NoError(t, s.Append(task))

	got := s.List()
	require.Len(t, got, 1)
	assert.Empty(t, cmp.Diff(task, got[0]))
}

func TestAppendKeepsOrderAndDups(t *testing.T) {
	s := newTestStore(t)

	t1 := Task{Title: "a", Deadline: "2099-01-01 10:00"}
	t2 := Task{Title: "b", Deadline: "2099-01-02 10:00"}
	require.NoError(t, s.Append(t1))
	require.NoError(t, s.Append(t2))
	// duplicates are allowed
	require.NoError(t, s.Append(t1))

	got := s.List()
	require.Len(t, got, 3)
	assert.Empty(t, cmp.Diff([]Task{t1, t2, t1}, got))
}

func TestAppendRejectsBadDeadline(t *testing.T) {
	s := newTestStore(t)

	err := s.Append(Task{Title: "x", Deadline: "tomorrow 5pm"})
	assert.Error(t, err)
	assert.Empty(t, s.List())
}

func TestWriteListRoundTrip(t *testing.T) {
	s := newTestStore(t)

	var tasks []Task
	for i := range 50 {
		tasks = append(tasks, Task{
			Title:    gofakeit.BookTitle(),
			Deadline: fmt.Sprintf("2099-01-%02d 10:00", i%28+1),
		})
	}
	require.NoError(t, s.Write(tasks))
	assert.Empty(t, cmp.Diff(tasks, s.List()))
}

func TestListMissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.List())
}

func TestListCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, nil)
	assert.Empty(t, s.List())
}

func TestWriteNil(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(nil))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
