package practice

import (
	"context"
	"encoding/json"
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

	"github.com/gokatarajesh/spanish-quiz/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/spanish-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/spanish-quiz/pkg/http/ws"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) ValidateToken(token string) (*jwt.Claims, error) {
	id, ok := s[token]
	if !ok {
		return nil, jwt.ErrInvalidToken
	}
	return &jwt.Claims{ParticipantID: id}, nil
}

type wsFixture struct {
	ts  *testService
	hub *ws.Hub
	srv *httptest.Server
	pid uuid.UUID
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	ts := newTestService(t, ServiceOptions{})
	hub := ws.NewHub(zerolog.Nop())
	pid := uuid.New()

	mux := http.NewServeMux()
	NewWSHandler(ts.Service, hub, staticTokens{"good": pid}, zerolog.Nop()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &wsFixture{ts: ts, hub: hub, srv: srv, pid: pid}
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/sessions?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) StatePayload {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, msg.Type)
	var payload StatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload
}

func readError(t *testing.T, conn *websocket.Conn) (ws.ErrorPayload, string) {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, ws.TypeError, msg.Type)
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload, msg.RequestID
}

func send(t *testing.T, conn *websocket.Conn, msg ws.Message) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWSRejectsBadToken(t *testing.T) {
	f := newWSFixture(t)

	for _, token := range []string{"", "bad"} {
		url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/sessions?token=" + token
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestWSSessionProtocol(t *testing.T) {
	f := newWSFixture(t)
	_, err := f.ts.Create(context.Background(), f.pid, CreateRequest{})
	require.NoError(t, err)
	_, err = f.ts.Start(f.pid)
	require.NoError(t, err)

	conn := f.dial(t, "good")

	initial := readState(t, conn)
	assert.Equal(t, "snapshot", initial.Event)
	assert.Equal(t, "q1", initial.Session.Question.ID)
	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	send(t, conn, ws.Message{Type: ws.TypeRequestState, RequestID: "r1"})
	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypeSessionState, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)

	send(t, conn, ws.Message{Type: ws.TypeRevealHint, RequestID: "r2"})
	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeHint, msg.Type)
	var hint ws.HintPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &hint))
	assert.Equal(t, "q1", hint.QuestionID)
	assert.Equal(t, "pista 1", hint.Hint)

	send(t, conn, ws.Message{Type: ws.TypeSubmitAnswer, Payload: json.RawMessage(`{}`), RequestID: "r3"})
	payload, reqID := readError(t, conn)
	assert.Equal(t, httperrors.ErrCodeInvalidPayload, payload.Code)
	assert.Equal(t, "r3", reqID)

	send(t, conn, ws.Message{Type: ws.TypeSubmitAnswer, Payload: json.RawMessage(`{"index":9}`), RequestID: "r4"})
	payload, _ = readError(t, conn)
	assert.Equal(t, httperrors.ErrCodeInvalidAnswer, payload.Code)

	send(t, conn, ws.Message{Type: ws.TypeResume})
	payload, _ = readError(t, conn)
	assert.Equal(t, httperrors.ErrCodeInvalidTransition, payload.Code)

	send(t, conn, ws.Message{Type: "dance"})
	payload, _ = readError(t, conn)
	assert.Equal(t, httperrors.ErrCodeUnknownMessageType, payload.Code)

	send(t, conn, ws.Message{Type: ws.TypeSubmitAnswer, Payload: json.RawMessage(`{"index":0}`)})
	require.Eventually(t, func() bool {
		v, err := f.ts.Snapshot(context.Background(), f.pid)
		return err == nil && v.CurrentIndex == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubPublisherDeliversUpdates(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "good")
	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	pub := NewHubPublisher(f.hub)
	require.NoError(t, pub.Publish(context.Background(), Update{
		ParticipantID: f.pid,
		Event:         "answered",
		Session:       View{SessionID: "s-1", CurrentIndex: 2},
	}))

	state := readState(t, conn)
	assert.Equal(t, "answered", state.Event)
	assert.Equal(t, "s-1", state.Session.SessionID)

	// participants connected to another instance are not an error
	assert.NoError(t, pub.Publish(context.Background(), Update{ParticipantID: uuid.New()}))
}
