package session

import (
	"context"
	"sync"
	"time"

	"github.com/pancsta/studai"
)

// Registry owns the per-chat sessions: creation on first contact, lookup by
// chat id, and TTL eviction of idle ones.
type Registry struct {
	mx sync.Mutex

	agent    studai.AgentAPI
	deps     Deps
	ttl      time.Duration
	sessions map[int64]*regEntry
}

type regEntry struct {
	sess     *Session
	lastSeen time.Time
}

func NewRegistry(agent studai.AgentAPI, deps Deps, ttl time.Duration) *Registry {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Registry{
		agent:    agent,
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[int64]*regEntry),
	}
}

// Get returns the chat's session, creating one on first contact.
func (r *Registry) Get(chatId int64) (*Session, error) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if entry, ok := r.sessions[chatId]; ok {
		entry.lastSeen = time.Now()
		return entry.sess, nil
	}

	sess, err := New(r.agent, chatId, r.deps)
	if err != nil {
		return nil, err
	}
	r.sessions[chatId] = &regEntry{sess: sess, lastSeen: time.Now()}

	return sess, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mx.Lock()
	defer r.mx.Unlock()

	return len(r.sessions)
}

// Start runs the eviction loop until ctx ends.
func (r *Registry) Start(ctx context.Context) {
	t := time.NewTicker(r.ttl / 4)

	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				r.evict(now)
			}
		}
	}()
}

// evict disposes sessions idle for longer than the TTL. Mid-flow sessions
// are kept, whatever their age.
func (r *Registry) evict(now time.Time) {
	r.mx.Lock()
	defer r.mx.Unlock()

	for chatId, entry := range r.sessions {
		if now.Sub(entry.lastSeen) < r.ttl || !entry.sess.Idle() {
			continue
		}
		entry.sess.Dispose()
		delete(r.sessions, chatId)
	}
}

// EvictNow runs one synchronous eviction pass against the given time.
func (r *Registry) EvictNow(now time.Time) {
	r.evict(now)
}
