package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrParticipantNotFound is returned when a guest record has expired or never existed.
var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantStore keeps guest records alive for as long as their refresh token.
type ParticipantStore interface {
	Save(ctx context.Context, p Participant, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (Participant, error)
}

// RedisParticipantStore stores guests as JSON under participant:<id>.
type RedisParticipantStore struct {
	client *redis.Client
}

// NewRedisParticipantStore wraps a redis client.
func NewRedisParticipantStore(client *redis.Client) *RedisParticipantStore {
	return &RedisParticipantStore{client: client}
}

func participantKey(id uuid.UUID) string {
	return fmt.Sprintf("participant:%s", id)
}

func (s *RedisParticipantStore) Save(ctx context.Context, p Participant, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, participantKey(p.ID), data, ttl).Err()
}

func (s *RedisParticipantStore) Get(ctx context.Context, id uuid.UUID) (Participant, error) {
	data, err := s.client.Get(ctx, participantKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Participant{}, ErrParticipantNotFound
	}
	if err != nil {
		return Participant{}, err
	}
	var p Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	return p, nil
}
