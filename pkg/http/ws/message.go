package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubmitAnswer = "submit_answer"
	TypeSkip         = "skip"
	TypePause        = "pause"
	TypeResume       = "resume"
	TypeRevealHint   = "reveal_hint"
	TypeRequestState = "request_state"

	// Server -> Client
	TypeSessionState = "session_state"
	TypeHint         = "hint"
	TypeError        = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	Index *int `json:"index"`
}

// Server Messages (outgoing)

type HintPayload struct {
	QuestionID string `json:"question_id"`
	Hint       string `json:"hint"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
