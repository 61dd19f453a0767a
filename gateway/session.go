package gateway

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/CletsyMedia/musicfy/domain/event"
)

var ErrBackpressure = errors.New("backpressure")

// Session is one live websocket connection. Its identity is empty until
// the hello handshake succeeds; it implements contract.EventSink so the
// registry can push to it directly.
type Session struct {
	ID     string
	userID string

	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newSession(id string, conn *websocket.Conn, bufferSize int) *Session {
	return &Session{
		ID:   id,
		conn: conn,
		send: make(chan []byte, bufferSize),
	}
}

type outboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Consume implements the EventSink interface: the event is framed and
// queued for the write pump. Delivery is fire-and-forget; a full send
// buffer drops the frame rather than blocking the caller.
func (s *Session) Consume(e event.Event) error {
	frame, err := json.Marshal(outboundEnvelope{Type: e.Name(), Payload: e})
	if err != nil {
		return err
	}
	return s.TrySend(frame)
}

func (s *Session) TrySend(frame []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("connection closed")
	}
	select {
	case s.send <- frame:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames and lets the write pump drain what is
// already queued before it closes the underlying connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
