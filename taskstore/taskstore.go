// Package taskstore persists the task list as a flat JSON file.
package taskstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DeadlineLayout is the canonical textual form of a task deadline.
const DeadlineLayout = "2006-01-02 15:04"

// Task is a single to-do entry with a minute-precision deadline.
type Task struct {
	Title    string `json:"title"`
	Deadline string `json:"deadline"`
}

// DeadlineTime parses the canonical deadline string.
func (t Task) DeadlineTime() (time.Time, error) {
	return time.Parse(DeadlineLayout, t.Deadline)
}

// Store is a whole-file JSON store. Writes are last-writer-wins, there is
// no locking between the live agent and the sweeper.
type Store struct {
	path string
	log  *slog.Logger
}

func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{path: path, log: log}
}

func (s *Store) Path() string {
	return s.path
}

// List returns all tasks. A missing or corrupt file reads as an empty list.
func (s *Store) List() []Task {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("task store unreadable, treating as empty",
				"path", s.path, "err", err)
		}
		return nil
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		s.log.Warn("task store corrupt, treating as empty",
			"path", s.path, "err", err)
		return nil
	}

	return tasks
}

// Append validates the deadline, re-reads the file, and rewrites it with the
// new task at the end.
func (s *Store) Append(t Task) error {
	if _, err := t.DeadlineTime(); err != nil {
		return fmt.Errorf("deadline %q not in form %s: %w", t.Deadline,
			DeadlineLayout, err)
	}

	tasks := append(s.List(), t)

	return s.Write(tasks)
}

// Write rewrites the whole file.
func (s *Store) Write(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(s.path, data, 0o644)
}
