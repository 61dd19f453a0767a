package runtime

import (
	"sync"

	"github.com/samber/lo"

	"github.com/CletsyMedia/musicfy/domain"
	"github.com/CletsyMedia/musicfy/domain/event"
)

// ActivityTracker holds each connected user's free-text activity label.
// Values are stored unconditionally; there is no content validation.
type ActivityTracker struct {
	mu         sync.RWMutex
	activities map[string]string
	registry   *Registry
}

func NewActivityTracker(registry *Registry) *ActivityTracker {
	return &ActivityTracker{
		activities: make(map[string]string),
		registry:   registry,
	}
}

// Set stores the activity and broadcasts the change to all sessions.
func (t *ActivityTracker) Set(userID, activity string) {
	t.mu.Lock()
	t.activities[userID] = activity
	t.mu.Unlock()

	t.registry.Broadcast(event.ActivityChanged{UserID: userID, Activity: activity})
}

// InitIdle assigns the default activity on connect if none is present.
func (t *ActivityTracker) InitIdle(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.activities[userID]; !ok {
		t.activities[userID] = domain.DefaultActivity
	}
}

// Clear drops the entry on disconnect; every connected user has a defined
// activity, nobody else does.
func (t *ActivityTracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.activities, userID)
}

func (t *ActivityTracker) Get(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	activity, ok := t.activities[userID]
	return activity, ok
}

// Snapshot returns all current entries, for the connect-time catch-up.
func (t *ActivityTracker) Snapshot() []domain.ActivityEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.MapToSlice(t.activities, func(userID, activity string) domain.ActivityEntry {
		return domain.ActivityEntry{UserID: userID, Activity: activity}
	})
}
