// Package gateway binds live websocket connections to the presence,
// activity and message components. Each inbound frame maps 1:1 to one
// call; results and failures flow back as outbound frames. A failing
// operation never closes the connection, the session stays usable for
// retry.
package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CletsyMedia/musicfy/auth"
	"github.com/CletsyMedia/musicfy/runtime"
	"github.com/CletsyMedia/musicfy/services"
)

type Controller struct {
	log      *slog.Logger
	tokens   *auth.TokenValidator
	presence *runtime.Presence
	activity *runtime.ActivityTracker
	messages services.IMessageService
	validate *validator.Validate

	bufferSize   int
	readLimit    int64
	writeTimeout time.Duration
}

func NewController(
	log *slog.Logger,
	tokens *auth.TokenValidator,
	presence *runtime.Presence,
	activity *runtime.ActivityTracker,
	messages services.IMessageService,
	bufferSize int,
	readLimit int64,
	writeTimeout time.Duration,
) *Controller {
	return &Controller{
		log:          log,
		tokens:       tokens,
		presence:     presence,
		activity:     activity,
		messages:     messages,
		validate:     validator.New(),
		bufferSize:   bufferSize,
		readLimit:    readLimit,
		writeTimeout: writeTimeout,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and runs the session until the peer goes
// away. Identity is established by the first frame, which must be a hello
// carrying the same credential the HTTP surface accepts.
func (ctl *Controller) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.log.Error("ws upgrade failed", "error", err)
		return
	}

	session := newSession(uuid.NewString(), ws, ctl.bufferSize)
	ctl.log.Info("new ws connection", "session_id", session.ID)

	ws.SetReadLimit(ctl.readLimit)
	go ctl.writePump(session)
	ctl.readPump(session)
}

func (ctl *Controller) writePump(s *Session) {
	defer func() { _ = s.conn.Close() }()
	for frame := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(ctl.writeTimeout)); err != nil {
			ctl.log.Error("write deadline", "session_id", s.ID, "error", err)
			return
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			ctl.log.Error("write failed", "session_id", s.ID, "error", err)
			return
		}
	}
}

func (ctl *Controller) readPump(s *Session) {
	defer func() {
		s.Close()
		// Unregisters only if this session is still the user's current
		// one, then clears activity and broadcasts the departure.
		ctl.presence.Disconnect(s.ID)
		ctl.log.Info("session closed", "session_id", s.ID, "user_id", s.userID)
	}()

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		ctl.handleFrame(s, frame)
	}
}
