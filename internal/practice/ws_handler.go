package practice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/spanish-quiz/internal/server"
	httperrors "github.com/gokatarajesh/spanish-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/spanish-quiz/pkg/http/ws"
)

// TokenValidator checks access tokens (implemented by auth.Service).
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// WSHandler drives a participant's session over a WebSocket. State updates
// arrive through the Publisher; replies to requests are sent directly.
type WSHandler struct {
	service *Service
	hub     *ws.Hub
	tokens  TokenValidator
	logger  zerolog.Logger
}

// NewWSHandler creates the session WebSocket handler.
func NewWSHandler(service *Service, hub *ws.Hub, tokens TokenValidator, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		logger:  logger.With().Str("component", "practice_ws").Logger(),
	}
}

// Register mounts /ws/sessions on mux.
func (h *WSHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/sessions", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection after validating the token query parameter.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(r.Context(), conn, claims.ParticipantID)
}

// HandleConnection serves an upgraded connection until the peer disconnects.
func (h *WSHandler) HandleConnection(ctx context.Context, conn *websocket.Conn, participantID uuid.UUID) {
	logger := h.logger.With().Str("participant_id", participantID.String()).Logger()
	wsConn := ws.NewConnection(conn, logger)
	h.hub.RegisterConnection(participantID, wsConn)

	go wsConn.WritePump()

	// Late joiners get the current state straight away.
	if view, err := h.service.Snapshot(ctx, participantID); err == nil {
		h.sendState(wsConn, "", "snapshot", view)
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, wsConn, participantID, msg)
	})

	h.hub.UnregisterConnection(participantID, wsConn)
}

func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, participantID uuid.UUID, msg ws.Message) error {
	var err error
	switch msg.Type {
	case ws.TypeSubmitAnswer:
		var payload ws.SubmitAnswerPayload
		if decodeErr := json.Unmarshal(msg.Payload, &payload); decodeErr != nil || payload.Index == nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "submit_answer requires an index")
		}
		_, err = h.service.Submit(participantID, *payload.Index)
	case ws.TypeSkip:
		_, err = h.service.Skip(participantID)
	case ws.TypePause:
		_, err = h.service.Pause(participantID)
	case ws.TypeResume:
		_, err = h.service.Resume(participantID)
	case ws.TypeRevealHint:
		var (
			hint string
			view View
		)
		hint, view, err = h.service.Hint(participantID)
		if err == nil {
			payload := ws.HintPayload{Hint: hint}
			if view.Question != nil {
				payload.QuestionID = view.Question.ID
			}
			reply, encodeErr := ws.NewMessage(ws.TypeHint, payload)
			if encodeErr != nil {
				return encodeErr
			}
			reply.RequestID = msg.RequestID
			return conn.Send(reply)
		}
	case ws.TypeRequestState:
		var view View
		view, err = h.service.Snapshot(ctx, participantID)
		if err == nil {
			return h.sendState(conn, msg.RequestID, "snapshot", view)
		}
	default:
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, "Unknown message type "+msg.Type)
	}

	if err != nil {
		_, code := classify(err)
		return errors.Join(err, h.sendError(conn, msg.RequestID, code, err.Error()))
	}
	return nil
}

func (h *WSHandler) sendState(conn *ws.Connection, requestID, event string, view View) error {
	msg, err := ws.NewMessage(ws.TypeSessionState, StatePayload{Event: event, Session: view})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return conn.Send(msg)
}

func (h *WSHandler) sendError(conn *ws.Connection, requestID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return conn.Send(msg)
}
