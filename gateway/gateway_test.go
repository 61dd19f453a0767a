package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/CletsyMedia/musicfy/auth"
	"github.com/CletsyMedia/musicfy/repositories"
	"github.com/CletsyMedia/musicfy/runtime"
	"github.com/CletsyMedia/musicfy/services"
)

const testSecret = "gateway_test_secret_long_enough_123"

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	registry := runtime.NewRegistry(log)
	activity := runtime.NewActivityTracker(registry)
	presence := runtime.NewPresence(log, registry, activity)
	store := repositories.NewMessageRepository(db, log, nil)
	messages := services.NewMessageService(log, store, registry)
	tokens := auth.NewTokenValidator(testSecret)

	ctl := NewController(log, tokens, presence, activity, messages, 32, 32768, 5*time.Second)
	router := gin.New()
	router.GET("/socket", ctl.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frameType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": frameType, "payload": payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

// connect dials, completes the hello handshake for userID and consumes the
// three connect-time frames.
func connect(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	conn := dial(t, server)
	token, err := auth.GenerateToken(testSecret, userID, nil, time.Hour)
	require.NoError(t, err)
	send(t, conn, "hello", map[string]string{"token": token})

	require.Equal(t, "presence.connected", read(t, conn).Type)
	require.Equal(t, "presence.snapshot", read(t, conn).Type)
	require.Equal(t, "activity.snapshot", read(t, conn).Type)
	return conn
}

func TestGateway_Frames_Before_Hello_Are_Rejected(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	conn := dial(t, server)

	send(t, conn, "message.send", map[string]string{"receiverId": "u2", "content": "hi"})

	f := read(t, conn)
	req.Equal("message.error", f.Type)
	req.Contains(string(f.Payload), "unauthenticated")
}

func TestGateway_Hello_With_Bad_Token_Refuses_Connection(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	conn := dial(t, server)

	send(t, conn, "hello", map[string]string{"token": "not.a.token"})

	f := read(t, conn)
	req.Equal("message.error", f.Type)

	// The server closes the session after the refusal
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
}

func TestGateway_Connect_Snapshot_Lists_Self(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	conn := dial(t, server)
	token, err := auth.GenerateToken(testSecret, "u1", nil, time.Hour)
	req.NoError(err)

	send(t, conn, "hello", map[string]string{"token": token})

	connected := read(t, conn)
	req.Equal("presence.connected", connected.Type)
	req.JSONEq(`{"userId":"u1"}`, string(connected.Payload))

	snapshot := read(t, conn)
	req.Equal("presence.snapshot", snapshot.Type)
	req.Contains(string(snapshot.Payload), "u1")

	activities := read(t, conn)
	req.Equal("activity.snapshot", activities.Type)
	req.Contains(string(activities.Payload), "Idle")
}

func TestGateway_Send_Between_Two_Connections(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	u1 := connect(t, server, "u1")
	u2 := connect(t, server, "u2")

	// u1 sees u2 arrive
	req.Equal("presence.connected", read(t, u1).Type)

	// When u1 messages u2
	send(t, u1, "message.send", map[string]string{"receiverId": "u2", "content": "hi"})

	// Then u2 receives it and u1 is acked, both with the content
	received := read(t, u2)
	req.Equal("message.received", received.Type)
	req.Contains(string(received.Payload), `"hi"`)

	ack := read(t, u1)
	req.Equal("message.sentAck", ack.Type)
	req.Contains(string(ack.Payload), `"hi"`)
}

func TestGateway_Activity_Update_Broadcasts(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	u1 := connect(t, server, "u1")
	u2 := connect(t, server, "u2")
	req.Equal("presence.connected", read(t, u1).Type) // u2 arrival

	send(t, u2, "activity.update", map[string]string{"activity": "Playing Daft Punk"})

	changed := read(t, u1)
	req.Equal("activity.changed", changed.Type)
	req.JSONEq(`{"userId":"u2","activity":"Playing Daft Punk"}`, string(changed.Payload))
}

func TestGateway_Edit_Of_Foreign_Message_Returns_Error_Frame(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	u1 := connect(t, server, "u1")
	u2 := connect(t, server, "u2")
	req.Equal("presence.connected", read(t, u1).Type)

	send(t, u1, "message.send", map[string]string{"receiverId": "u2", "content": "hi"})
	received := read(t, u2)
	req.Equal("message.received", received.Type)
	req.Equal("message.sentAck", read(t, u1).Type)

	var payload struct {
		Message struct {
			ID string `json:"id"`
		} `json:"message"`
	}
	req.NoError(json.Unmarshal(received.Payload, &payload))

	// When u2 tries to edit u1's message
	send(t, u2, "message.edit", map[string]string{"messageId": payload.Message.ID, "content": "hacked"})

	// Then u2 gets an authorization error and the session stays usable
	errFrame := read(t, u2)
	req.Equal("message.error", errFrame.Type)
	req.Contains(string(errFrame.Payload), "forbidden")

	send(t, u2, "message.read", map[string]string{"messageId": payload.Message.ID})
	req.Equal("message.read", read(t, u2).Type)
}

func TestGateway_Disconnect_Broadcasts_Departure(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	u1 := connect(t, server, "u1")
	u2 := connect(t, server, "u2")
	req.Equal("presence.connected", read(t, u1).Type)
	_ = u2.Close()

	departed := read(t, u1)
	req.Equal("presence.disconnected", departed.Type)
	req.JSONEq(`{"userId":"u2"}`, string(departed.Payload))
}

func TestGateway_History_Fetch(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	u1 := connect(t, server, "u1")

	send(t, u1, "message.send", map[string]string{"receiverId": "u2", "content": "first"})
	req.Equal("message.sentAck", read(t, u1).Type)
	send(t, u1, "message.send", map[string]string{"receiverId": "u2", "content": "second"})
	req.Equal("message.sentAck", read(t, u1).Type)

	send(t, u1, "history.fetch", map[string]string{"peerId": "u2"})

	page := read(t, u1)
	req.Equal("history.page", page.Type)
	var payload struct {
		PeerID   string `json:"peerId"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	req.NoError(json.Unmarshal(page.Payload, &payload))
	req.Equal("u2", payload.PeerID)
	req.Len(payload.Messages, 2)
	req.Equal("second", payload.Messages[0].Content)
	req.Equal("first", payload.Messages[1].Content)
}
