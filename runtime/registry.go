// Package runtime tracks live sessions: who is connected, through which
// session, and what they are doing. It holds no business logic.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/CletsyMedia/musicfy/contract"
	"github.com/CletsyMedia/musicfy/domain/event"
)

// Registry is the bijective map between user identities and their single
// live session. It owns the connection state for the whole process;
// construct one and pass it by handle to every dependent.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionEntry // userID -> current session
	bySession map[string]string        // sessionID -> userID, inverse side
	log       *slog.Logger
}

type sessionEntry struct {
	SessionID string
	Sink      contract.EventSink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions:  make(map[string]*sessionEntry),
		bySession: make(map[string]string),
		log:       log,
	}
}

// Register binds userID to sessionID, replacing any prior session for the
// same user (last connect wins). The replaced session id is returned so
// callers can observe the supersession.
func (r *Registry) Register(userID, sessionID string, sink contract.EventSink) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prev string
	if entry, ok := r.sessions[userID]; ok {
		prev = entry.SessionID
		delete(r.bySession, prev)
	}
	r.sessions[userID] = &sessionEntry{SessionID: sessionID, Sink: sink}
	r.bySession[sessionID] = userID
	r.log.Debug("session registered", "user_id", userID, "session_id", sessionID)
	return prev, prev != ""
}

// Unregister removes the entry whose session equals sessionID and returns
// the user it unbound. A session that was already superseded by a newer
// connect is absent from the inverse map, so its late disconnect is a
// no-op and cannot kick the newer session.
func (r *Registry) Unregister(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sessionID]
	if !ok {
		return "", false
	}
	delete(r.bySession, sessionID)
	delete(r.sessions, userID)
	r.log.Debug("session unregistered", "user_id", userID, "session_id", sessionID)
	return userID, true
}

func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[userID]
	if !ok {
		return "", false
	}
	return entry.SessionID, true
}

// Sink returns the outbound side of the user's current session.
func (r *Registry) Sink(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return entry.Sink, true
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.sessions)
}

// Broadcast fans an event out to every live session. Sinks are collected
// under the read lock but consumed outside it, so a slow consumer cannot
// stall registrations.
func (r *Registry) Broadcast(e event.Event) {
	r.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, entry := range r.sessions {
		sinks = append(sinks, entry.Sink)
	}
	r.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(e); err != nil {
			r.log.Debug("broadcast delivery dropped", "event", e.Name(), "error", err)
		}
	}
}
