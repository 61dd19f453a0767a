//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/CletsyMedia/musicfy/contract"
	"github.com/CletsyMedia/musicfy/domain"
	"github.com/CletsyMedia/musicfy/domain/event"
	"github.com/CletsyMedia/musicfy/errors"
)

// IMessageService coordinates the message lifecycle:
// Created -> Edited* -> Deleted (terminal). Both transport entry points
// (HTTP and the websocket gateway) call the same methods, so ownership and
// state validation cannot diverge between them.
type IMessageService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error)
	Edit(ctx context.Context, messageID, content, requesterID string) (domain.Message, error)
	Delete(ctx context.Context, messageID, requesterID string) error
	MarkRead(ctx context.Context, messageID, readerID string) (domain.Message, error)
	History(ctx context.Context, userID, peerID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageService struct {
	log      *slog.Logger
	store    contract.MessageStore
	registry contract.Registry
	validate *validator.Validate
}

func NewMessageService(log *slog.Logger, store contract.MessageStore, registry contract.Registry) *MessageService {
	return &MessageService{
		log:      log,
		store:    store,
		registry: registry,
		validate: validator.New(),
	}
}

type sendCommand struct {
	SenderID   string `validate:"required"`
	ReceiverID string `validate:"required"`
	Content    string `validate:"required"`
}

// Send persists the message, then pushes best-effort notifications:
// message.received to the receiver's current session if online, and
// exactly one message.sentAck to the sender's current session. An offline
// receiver is simply skipped; durability for offline peers relies on the
// store, read back through History on reconnect.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error) {
	cmd := sendCommand{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	message, err := s.store.Create(senderID, receiverID, content)
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}

	s.pushTo(receiverID, event.MessageReceived{Message: message})
	s.pushTo(senderID, event.MessageSentAck{Message: message})
	return message, nil
}

// Edit replaces the content after the shared ownership check and notifies
// both parties' current sessions. The requester is always acked by the
// caller (HTTP response or gateway frame) regardless of peer delivery.
func (s *MessageService) Edit(ctx context.Context, messageID, content, requesterID string) (domain.Message, error) {
	message, err := s.loadOwned(messageID, requesterID)
	if err != nil {
		return domain.Message{}, err
	}

	updated, err := s.store.UpdateContent(messageID, content)
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}

	s.pushToParties(message, event.MessageEdited{Message: updated})
	return updated, nil
}

// Delete hard-deletes the record; only the id travels in the notification.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	message, err := s.loadOwned(messageID, requesterID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(messageID); err != nil {
		return storeFailure(err)
	}

	s.pushToParties(message, event.MessageDeleted{MessageID: messageID})
	return nil
}

// MarkRead idempotently appends the reader to the message's readBy set.
// Only the message's receiver may mark it read; the sender's current
// session is notified so read receipts show up live.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID string) (domain.Message, error) {
	message, err := s.store.FindByID(messageID)
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}
	if message.ReceiverID != readerID {
		return domain.Message{}, fmt.Errorf("%w: only the receiver may mark a message read", errors.ErrForbidden)
	}

	updated, err := s.store.AppendReader(messageID, readerID)
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}

	s.pushTo(updated.SenderID, event.MessageRead{Message: updated})
	return updated, nil
}

// History pages through the requester's conversation with peerID, newest
// first. This is the offline catch-up path: edits and deletes missed while
// disconnected are reconciled by refetching, there is no replay stream.
func (s *MessageService) History(ctx context.Context, userID, peerID string, cursor *string) ([]domain.Message, *string, error) {
	if peerID == "" {
		return nil, nil, fmt.Errorf("%w: peer id is required", errors.ErrValidation)
	}
	messages, next, err := s.store.Conversation(userID, peerID, cursor)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	return messages, next, nil
}

// loadOwned is the single authorization routine for mutating operations.
// It reads through the store, never a cache, to avoid stale-ownership bugs.
func (s *MessageService) loadOwned(messageID, requesterID string) (domain.Message, error) {
	message, err := s.store.FindByID(messageID)
	if err != nil {
		return domain.Message{}, storeFailure(err)
	}
	if message.SenderID != requesterID {
		return domain.Message{}, fmt.Errorf("%w", errors.ErrForbidden)
	}
	return message, nil
}

func (s *MessageService) pushToParties(message domain.Message, e event.Event) {
	s.pushTo(message.SenderID, e)
	if message.ReceiverID != message.SenderID {
		s.pushTo(message.ReceiverID, e)
	}
}

// pushTo delivers to the user's current session, whichever that is right
// now; an offline user is skipped, not queued.
func (s *MessageService) pushTo(userID string, e event.Event) {
	sink, ok := s.registry.Sink(userID)
	if !ok {
		return
	}
	if err := sink.Consume(e); err != nil {
		s.log.Debug("push dropped", "user_id", userID, "event", e.Name(), "error", err)
	}
}

func storeFailure(err error) error {
	if stderrors.Is(err, errors.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStorage, err)
}
