package runtime

import (
	"log/slog"

	"github.com/CletsyMedia/musicfy/contract"
	"github.com/CletsyMedia/musicfy/domain/event"
)

// Presence ties registry mutations to the broadcasts derived from them.
// It is the only component that mutates the Registry, which keeps the
// ordering guarantee in one place: a connecting session's snapshot is
// computed strictly after its own registration is applied.
type Presence struct {
	log      *slog.Logger
	registry *Registry
	activity *ActivityTracker
}

func NewPresence(log *slog.Logger, registry *Registry, activity *ActivityTracker) *Presence {
	return &Presence{log: log, registry: registry, activity: activity}
}

// Connect registers the session, announces the user to everyone, then
// sends the full presence and activity snapshots to the new session only.
// The snapshot always lists the connecting user itself.
func (p *Presence) Connect(userID, sessionID string, sink contract.EventSink) {
	prev, replaced := p.registry.Register(userID, sessionID, sink)
	if replaced {
		p.log.Info("session superseded", "user_id", userID, "prev_session_id", prev)
	}
	p.activity.InitIdle(userID)

	p.registry.Broadcast(event.PresenceConnected{UserID: userID})

	if err := sink.Consume(event.PresenceSnapshot{UserIDs: p.registry.OnlineUsers()}); err != nil {
		p.log.Debug("presence snapshot dropped", "user_id", userID, "error", err)
	}
	if err := sink.Consume(event.ActivitySnapshot{Entries: p.activity.Snapshot()}); err != nil {
		p.log.Debug("activity snapshot dropped", "user_id", userID, "error", err)
	}
}

// Disconnect unregisters the session, clears the user's activity and
// broadcasts the departure. A superseded session's late disconnect is a
// no-op: the newer session stays registered and nothing is broadcast.
func (p *Presence) Disconnect(sessionID string) {
	userID, ok := p.registry.Unregister(sessionID)
	if !ok {
		return
	}
	p.activity.Clear(userID)
	p.registry.Broadcast(event.PresenceDisconnected{UserID: userID})
}
