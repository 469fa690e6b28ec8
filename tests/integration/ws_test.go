//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/spanish-quiz/pkg/http/ws"
)

type statePayload struct {
	Event   string      `json:"event"`
	Session sessionView `json:"session"`
}

func TestWebSocketSessionUpdates(t *testing.T) {
	baseHTTP := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	baseWS := envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/sessions")

	guest := createGuest(t, baseHTTP, "WS")
	resp := doJSON(t, http.MethodPost, baseHTTP+"/v1/sessions", guest.AccessToken, map[string]any{"count": 2})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	conn := dialSessionWS(t, baseWS, guest.AccessToken)
	defer conn.Close()

	snapshot := waitForState(t, conn, "snapshot", 5*time.Second)
	if snapshot.Session.State != "setup" {
		t.Fatalf("unexpected initial state: %s", snapshot.Session.State)
	}

	resp = doJSON(t, http.MethodPost, baseHTTP+"/v1/sessions/current/start", guest.AccessToken, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	waitForState(t, conn, "started", 5*time.Second)

	index := 0
	msg, err := wsmsg.NewMessage(wsmsg.TypeSubmitAnswer, wsmsg.SubmitAnswerPayload{Index: &index})
	if err != nil {
		t.Fatalf("encode submit: %v", err)
	}
	msg.RequestID = "r1"
	sendMessage(t, conn, msg)

	answered := waitForState(t, conn, "answered", 5*time.Second)
	if answered.Session.CurrentIndex != 1 {
		t.Fatalf("expected to move to question 2, at %d", answered.Session.CurrentIndex)
	}

	sendMessage(t, conn, wsmsg.Message{Type: "dance", RequestID: "r2"})
	errMsg := waitForType(t, conn, wsmsg.TypeError, 5*time.Second)
	var payload wsmsg.ErrorPayload
	if err := json.Unmarshal(errMsg.Payload, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Code != "unknown_message_type" || errMsg.RequestID != "r2" {
		t.Fatalf("unexpected error reply: %+v", errMsg)
	}
}

func dialSessionWS(t *testing.T, wsBase, token string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg wsmsg.Message) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send %s: %v", msg.Type, err)
	}
}

func waitForType(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read ws message failed: %v", err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("timeout waiting for %s", msgType)
	return wsmsg.Message{}
}

func waitForState(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) statePayload {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg := waitForType(t, conn, wsmsg.TypeSessionState, time.Until(deadline))
		var payload statePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode session_state payload: %v", err)
		}
		if payload.Event == event {
			return payload
		}
	}
	t.Fatalf("timeout waiting for %s state", event)
	return statePayload{}
}
