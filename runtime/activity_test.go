package runtime

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/CletsyMedia/musicfy/domain"
	"github.com/CletsyMedia/musicfy/domain/event"
)

func TestActivity_InitIdle_Keeps_Existing_Value(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	tracker := NewActivityTracker(registry)

	// Given a fresh user
	tracker.InitIdle("u1")
	activity, ok := tracker.Get("u1")
	req.True(ok)
	req.Equal(domain.DefaultActivity, activity)

	// When the user picks an activity and reconnect initialization runs again
	tracker.Set("u1", "Listening to Lo-fi Beats")
	tracker.InitIdle("u1")

	// Then the chosen activity survives
	activity, _ = tracker.Get("u1")
	req.Equal("Listening to Lo-fi Beats", activity)
}

func TestActivity_Set_Broadcasts_To_All_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	tracker := NewActivityTracker(registry)
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	registry.Register("u1", uuid.NewString(), sink1)
	registry.Register("u2", uuid.NewString(), sink2)

	tracker.Set("u1", "Browsing albums")

	want := event.ActivityChanged{UserID: "u1", Activity: "Browsing albums"}
	req.Equal([]event.Event{want}, sink1.events)
	req.Equal([]event.Event{want}, sink2.events)
}

func TestActivity_Clear(t *testing.T) {
	req := require.New(t)
	tracker := NewActivityTracker(NewRegistry(slog.Default()))
	tracker.InitIdle("u1")

	tracker.Clear("u1")

	_, ok := tracker.Get("u1")
	req.False(ok)
	req.Empty(tracker.Snapshot())
}
