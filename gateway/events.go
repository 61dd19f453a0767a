package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CletsyMedia/musicfy/domain/event"
	"github.com/CletsyMedia/musicfy/errors"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type helloPayload struct {
	Token string `json:"token" validate:"required"`
}

type activityPayload struct {
	Activity string `json:"activity"`
}

type sendPayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type editPayload struct {
	MessageID string `json:"messageId" validate:"required"`
	Content   string `json:"content"`
}

type messageIDPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type historyPayload struct {
	PeerID string  `json:"peerId"`
	Cursor *string `json:"cursor"`
}

// handleFrame routes one inbound frame. The sender identity is always the
// session's authenticated user; identity fields a client might put in a
// payload are ignored.
func (ctl *Controller) handleFrame(s *Session, frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		ctl.sendError(s, fmt.Errorf("%w: malformed frame", errors.ErrValidation))
		return
	}

	if env.Type == "hello" {
		ctl.handleHello(s, env.Payload)
		return
	}
	if s.userID == "" {
		ctl.sendError(s, fmt.Errorf("%w: hello required before %q", errors.ErrUnauthenticated, env.Type))
		return
	}

	ctx := context.Background()
	switch env.Type {
	case "activity.update":
		var p activityPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		ctl.activity.Set(s.userID, p.Activity)
	case "message.send":
		var p sendPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		if _, err := ctl.messages.Send(ctx, s.userID, p.ReceiverID, p.Content); err != nil {
			ctl.sendError(s, err)
		}
	case "message.edit":
		var p editPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		if _, err := ctl.messages.Edit(ctx, p.MessageID, p.Content, s.userID); err != nil {
			ctl.sendError(s, err)
		}
	case "message.delete":
		var p messageIDPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		if err := ctl.messages.Delete(ctx, p.MessageID, s.userID); err != nil {
			ctl.sendError(s, err)
		}
	case "message.read":
		var p messageIDPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		updated, err := ctl.messages.MarkRead(ctx, p.MessageID, s.userID)
		if err != nil {
			ctl.sendError(s, err)
			return
		}
		// Ack the reader; the sender was notified through the registry.
		ctl.push(s, event.MessageRead{Message: updated})
	case "history.fetch":
		var p historyPayload
		if err := ctl.decode(env.Payload, &p); err != nil {
			ctl.sendError(s, err)
			return
		}
		messages, cursor, err := ctl.messages.History(ctx, s.userID, p.PeerID, p.Cursor)
		if err != nil {
			ctl.sendError(s, err)
			return
		}
		ctl.push(s, event.HistoryPage{PeerID: p.PeerID, Messages: messages, Cursor: cursor})
	default:
		ctl.log.Warn("unknown frame type", "session_id", s.ID, "type", env.Type)
		ctl.sendError(s, fmt.Errorf("%w: unknown frame type %q", errors.ErrValidation, env.Type))
	}
}

// handleHello validates the credential and registers the session. A bad
// token refuses the connection entirely; the claimed identity is never
// trusted without it.
func (ctl *Controller) handleHello(s *Session, payload json.RawMessage) {
	if s.userID != "" {
		ctl.sendError(s, fmt.Errorf("%w: session already identified", errors.ErrValidation))
		return
	}

	var p helloPayload
	if err := ctl.decode(payload, &p); err != nil {
		ctl.sendError(s, err)
		return
	}

	claims, err := ctl.tokens.Validate(p.Token)
	if err != nil {
		ctl.sendError(s, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err))
		s.Close()
		return
	}

	s.userID = claims.UserID
	ctl.presence.Connect(s.userID, s.ID, s)
	ctl.log.Info("session identified", "session_id", s.ID, "user_id", s.userID)
}

func (ctl *Controller) decode(payload json.RawMessage, into any) error {
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, into); err != nil {
			return fmt.Errorf("%w: malformed payload", errors.ErrValidation)
		}
	}
	if err := ctl.validate.Struct(into); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func (ctl *Controller) push(s *Session, e event.Event) {
	if err := s.Consume(e); err != nil {
		ctl.log.Debug("push dropped", "session_id", s.ID, "event", e.Name(), "error", err)
	}
}

func (ctl *Controller) sendError(s *Session, err error) {
	ctl.push(s, event.MessageError{Reason: errors.Reason(err), Detail: err.Error()})
}
