package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades requests, registers the connection under id and echoes every message back.
func echoServer(t *testing.T, hub *Hub, id uuid.UUID) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(raw, zerolog.Nop())
		hub.RegisterConnection(id, conn)
		go conn.WritePump()
		conn.ReadPump(func(msg Message) error {
			return hub.SendToUser(id, msg)
		})
		hub.UnregisterConnection(id, conn)
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return c
}

func TestHubRoundTrip(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	id := uuid.New()
	srv := echoServer(t, hub, id)
	defer srv.Close()

	client := dial(t, srv)
	defer client.Close()

	msg, err := NewMessage(TypeHint, HintPayload{QuestionID: "q1", Hint: "pista"})
	require.NoError(t, err)
	require.NoError(t, client.WriteJSON(msg))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, TypeHint, got.Type)
	assert.JSONEq(t, `{"question_id":"q1","hint":"pista"}`, string(got.Payload))
}

func TestHubUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	id := uuid.New()
	srv := echoServer(t, hub, id)
	defer srv.Close()

	client := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	client.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, ok := hub.GetConnection(id)
	assert.False(t, ok)
}

func TestSendToUnknownParticipant(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	err := hub.SendToUser(uuid.New(), Message{Type: TypeSessionState})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}
