package practice

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/spanish-quiz/pkg/http/ws"
)

// StatePayload is the body of a session_state message.
type StatePayload struct {
	Event   string `json:"event"`
	Session View   `json:"session"`
}

func stateMessage(u Update) (ws.Message, error) {
	return ws.NewMessage(ws.TypeSessionState, StatePayload{Event: string(u.Event), Session: u.Session})
}

// HubPublisher delivers updates straight to this instance's hub. Used when
// Redis pub/sub is not configured.
type HubPublisher struct {
	hub *ws.Hub
}

var _ Publisher = (*HubPublisher)(nil)

func NewHubPublisher(hub *ws.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, u Update) error {
	msg, err := stateMessage(u)
	if err != nil {
		return err
	}
	if err := p.hub.SendToUser(u.ParticipantID, msg); err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		return err
	}
	return nil
}

// Broadcaster listens for Redis pub/sub session updates and forwards them to
// the participant's WebSocket connection on this instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a pub/sub powered session broadcaster.
func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "session_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var u Update
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode session update payload")
		return
	}

	msg, err := stateMessage(u)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal session WS payload")
		return
	}

	// Participants connected to another instance are that instance's concern.
	if err := b.hub.SendToUser(u.ParticipantID, msg); err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		b.logger.Warn().Err(err).Str("participant_id", u.ParticipantID.String()).Msg("failed to forward session update")
	}
}
