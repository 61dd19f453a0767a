// Package event defines the outbound events pushed to live sessions.
// Event names are the wire-level frame types seen by clients.
package event

import (
	"github.com/CletsyMedia/musicfy/domain"
)

// Event is anything that can be pushed to a session.
// Name is the wire frame type, the payload is the event value itself.
type Event interface {
	Name() string
}

type PresenceConnected struct {
	UserID string `json:"userId"`
}

func (PresenceConnected) Name() string { return "presence.connected" }

type PresenceDisconnected struct {
	UserID string `json:"userId"`
}

func (PresenceDisconnected) Name() string { return "presence.disconnected" }

// PresenceSnapshot is sent to a newly connected session only, computed
// strictly after its own registration so the client always finds itself
// listed.
type PresenceSnapshot struct {
	UserIDs []string `json:"userIds"`
}

func (PresenceSnapshot) Name() string { return "presence.snapshot" }

type ActivitySnapshot struct {
	Entries []domain.ActivityEntry `json:"entries"`
}

func (ActivitySnapshot) Name() string { return "activity.snapshot" }

type ActivityChanged struct {
	UserID   string `json:"userId"`
	Activity string `json:"activity"`
}

func (ActivityChanged) Name() string { return "activity.changed" }

type MessageReceived struct {
	Message domain.Message `json:"message"`
}

func (MessageReceived) Name() string { return "message.received" }

// MessageSentAck is the sender's self-echo; the sender does not locally
// persist its own sends and relies on this ack for its own timeline.
type MessageSentAck struct {
	Message domain.Message `json:"message"`
}

func (MessageSentAck) Name() string { return "message.sentAck" }

type MessageEdited struct {
	Message domain.Message `json:"message"`
}

func (MessageEdited) Name() string { return "message.edited" }

// MessageDeleted carries only the id; the content is gone.
type MessageDeleted struct {
	MessageID string `json:"messageId"`
}

func (MessageDeleted) Name() string { return "message.deleted" }

type MessageRead struct {
	Message domain.Message `json:"message"`
}

func (MessageRead) Name() string { return "message.read" }

type MessageError struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (MessageError) Name() string { return "message.error" }

// HistoryPage is the reply to a history fetch: one page of the conversation
// with peerID, newest first, with an opaque cursor for the next page.
type HistoryPage struct {
	PeerID   string           `json:"peerId"`
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor"`
}

func (HistoryPage) Name() string { return "history.page" }
