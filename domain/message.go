// Package domain contains core concepts of the realtime messaging system.
// This file defines direct Message records and related rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users.
// Content is mutable by the sender only; ReadBy grows monotonically and
// never contains duplicates; deletion is terminal.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	ReadBy     []string  `json:"readBy"`
}

// HasReader reports whether userID already appears in ReadBy.
func (m Message) HasReader(userID string) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}
