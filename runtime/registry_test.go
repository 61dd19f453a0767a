package runtime

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/CletsyMedia/musicfy/domain/event"
)

// recordingSink captures every event it consumes, in order.
type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Consume(e event.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) names() []string {
	var out []string
	for _, e := range s.events {
		out = append(out, e.Name())
	}
	return out
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sessionID := uuid.NewString()

	// Given no user is connected
	_, ok := registry.Lookup("u1")
	req.False(ok)

	// When a user registers
	prev, replaced := registry.Register("u1", sessionID, &recordingSink{})

	// Then there is nothing to replace and the lookup resolves
	req.False(replaced)
	req.Empty(prev)
	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(sessionID, got)
	req.Equal([]string{"u1"}, registry.OnlineUsers())
}

func TestRegistry_Last_Connect_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	first := uuid.NewString()
	second := uuid.NewString()
	firstSink := &recordingSink{}
	secondSink := &recordingSink{}

	// Given a connected user
	registry.Register("u1", first, firstSink)

	// When the same user connects again
	prev, replaced := registry.Register("u1", second, secondSink)

	// Then the prior session is reported and the mapping points at the new one
	req.True(replaced)
	req.Equal(first, prev)
	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(second, got)
	req.Len(registry.OnlineUsers(), 1)

	// And the current sink is the new session's
	sink, ok := registry.Sink("u1")
	req.True(ok)
	req.Same(secondSink, sink.(*recordingSink))
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sessionID := uuid.NewString()
	registry.Register("u1", sessionID, &recordingSink{})

	// When the session unregisters
	userID, ok := registry.Unregister(sessionID)

	// Then the user is gone
	req.True(ok)
	req.Equal("u1", userID)
	_, ok = registry.Lookup("u1")
	req.False(ok)
	req.Empty(registry.OnlineUsers())

	// And a second unregister of the same session is a no-op
	_, ok = registry.Unregister(sessionID)
	req.False(ok)
}

func TestRegistry_Superseded_Session_Cannot_Unregister_Newer(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	stale := uuid.NewString()
	current := uuid.NewString()

	// Given a user that reconnected
	registry.Register("u1", stale, &recordingSink{})
	registry.Register("u1", current, &recordingSink{})

	// When the stale session's disconnect finally arrives
	_, ok := registry.Unregister(stale)

	// Then nothing is unbound and the user is still online
	req.False(ok)
	got, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(current, got)
}

func TestRegistry_Broadcast_Reaches_All_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	registry.Register("u1", uuid.NewString(), sink1)
	registry.Register("u2", uuid.NewString(), sink2)

	registry.Broadcast(event.PresenceConnected{UserID: "u3"})

	req.Equal([]string{"presence.connected"}, sink1.names())
	req.Equal([]string{"presence.connected"}, sink2.names())
}
