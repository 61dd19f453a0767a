package domain

// DefaultActivity is the activity assigned to a user on first connect.
const DefaultActivity = "Idle"

// ActivityEntry pairs a user with their current free-text activity.
type ActivityEntry struct {
	UserID   string `json:"userId"`
	Activity string `json:"activity"`
}
