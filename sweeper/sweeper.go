// Package sweeper prunes expired tasks and sends due-date notifications.
package sweeper

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pancsta/studai/taskstore"
)

// Notifier delivers a single outbound text message.
type Notifier interface {
	Notify(txt string) error
}

// NotifierFunc adapts a func to the Notifier interface.
type NotifierFunc func(txt string) error

func (f NotifierFunc) Notify(txt string) error {
	return f(txt)
}

type Sweeper struct {
	store  *taskstore.Store
	notify Notifier
	log    *slog.Logger
}

func New(store *taskstore.Store, notify Notifier, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{store: store, notify: notify, log: log}
}

// Run reads the store, notifies about upcoming tasks, and rewrites the file
// without the expired ones. A task expires the moment its deadline is no
// longer in the future. Re-running within the same bucket window sends
// duplicate notifications.
func (s *Sweeper) Run(now time.Time) error {
	tasks := s.store.List()
	var keep []taskstore.Task

	for _, t := range tasks {
		dt, err := t.DeadlineTime()
		if err != nil {
			s.log.Warn("dropping task with malformed deadline",
				"title", t.Title, "deadline", t.Deadline)
			continue
		}

		// expired, incl. deadline == now
		if !dt.After(now) {
			s.log.Info("pruning expired task", "title", t.Title,
				"deadline", t.Deadline)
			continue
		}

		if err := s.notify.Notify(Message(t.Title, dt, now)); err != nil {
			s.log.Error("notification failed", "title", t.Title, "err", err)
		}
		keep = append(keep, t)
	}

	return s.store.Write(keep)
}

// Message formats the notification for a single upcoming task, with a tone
// per days-remaining bucket.
func Message(title string, deadline, now time.Time) string {
	rem := deadline.Sub(now)
	hhmm := deadline.Format("15:04")

	// more than a day away
	if rem > 24*time.Hour {
		days := int(math.Ceil(rem.Hours() / 24))
		return fmt.Sprintf("⏳ Reminder: %q is due in %d days (%s).",
			title, days, deadline.Format(taskstore.DeadlineLayout))
	}

	// tomorrow
	y1, m1, d1 := deadline.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return fmt.Sprintf("⚠️ Reminder: %q is due tomorrow at %s.", title, hhmm)
	}

	// today
	return fmt.Sprintf("🔥 Reminder: %q is due today at %s!", title, hhmm)
}
