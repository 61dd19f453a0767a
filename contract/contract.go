//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"github.com/CletsyMedia/musicfy/domain"
	"github.com/CletsyMedia/musicfy/domain/event"
)

// EventSink is one live session's outbound side. Delivery is best-effort
// and non-blocking: a sink may drop under backpressure, it never queues
// for an offline peer.
type EventSink interface {
	Consume(e event.Event) error
}

// Registry maps user identities to their single live session.
// A new connect for the same user replaces the prior session
// (last connect wins); the mapping is a bijection at every instant.
type Registry interface {
	Register(userID, sessionID string, sink EventSink) (prevSessionID string, replaced bool)
	Unregister(sessionID string) (userID string, ok bool)
	Lookup(userID string) (sessionID string, ok bool)
	Sink(userID string) (EventSink, bool)
	OnlineUsers() []string
	Broadcast(e event.Event)
}

// MessageStore is the durable side of the message lifecycle. All ownership
// checks read through the store; no cache is treated as authoritative.
type MessageStore interface {
	Create(senderID, receiverID, content string) (domain.Message, error)
	FindByID(id string) (domain.Message, error)
	UpdateContent(id, content string) (domain.Message, error)
	Delete(id string) error
	AppendReader(id, userID string) (domain.Message, error)
	Conversation(userA, userB string, cursor *string) ([]domain.Message, *string, error)
}
